package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docverify/internal/verification/security"
)

// HTTPScanner submits payloads to a remote scanning service that answers
// {"clean": bool, "detail": string}.
type HTTPScanner struct {
	endpoint string
	client   *http.Client
}

func NewHTTPScanner(endpoint string, timeout time.Duration) *HTTPScanner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScanner{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

var _ security.MalwareScanner = (*HTTPScanner)(nil)

type scanResponse struct {
	Clean  *bool  `json:"clean"`
	Detail string `json:"detail"`
}

func (s *HTTPScanner) Scan(ctx context.Context, payload []byte) (security.ScanResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return security.ScanResult{}, fmt.Errorf("build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return security.ScanResult{}, fmt.Errorf("scan request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return security.ScanResult{}, fmt.Errorf("scan service returned status %d", resp.StatusCode)
	}

	var body scanResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return security.ScanResult{}, fmt.Errorf("decode scan response: %w", err)
	}
	if body.Clean == nil {
		return security.ScanResult{}, fmt.Errorf("scan response missing verdict")
	}
	return security.ScanResult{Clean: *body.Clean, Detail: body.Detail}, nil
}
