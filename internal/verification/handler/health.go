package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"docverify/pkg/platform/httputil"
)

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health runs every check concurrently and answers 503 when any fails.
func Health(checks map[string]CheckFunc) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		results := make([]string, len(names))
		var wg sync.WaitGroup
		for i, name := range names {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = "ok"
				if err := checks[name](ctx); err != nil {
					results[i] = err.Error()
				}
			}()
		}
		wg.Wait()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for i, name := range names {
			resp.Checks[name] = results[i]
			if results[i] != "ok" {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
