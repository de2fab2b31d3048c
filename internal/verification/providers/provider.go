// Package providers routes documents to external extraction services.
package providers

import (
	"context"
	"fmt"
	"sort"

	"docverify/internal/verification/models"
)

// Protocol defines how a provider is reached.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolStatic Protocol = "static"
)

// Capabilities describes what a provider supports.
type Capabilities struct {
	Protocol Protocol
	Version  string
	Classes  []models.DocumentClass
}

// ExtractionRequest is the single round trip sent to a provider. Payload is
// the encrypted document envelope; KeyID names the key that sealed it.
type ExtractionRequest struct {
	DocumentID  string
	Class       models.DocumentClass
	Payload     []byte
	KeyID       string
	ContentType string
	Filename    string
}

// Provider is implemented by every extraction source.
type Provider interface {
	// ID returns a unique identifier for this provider instance.
	ID() string

	Capabilities() Capabilities

	// Extract performs one extraction call. Implementations must honour ctx
	// cancellation and must not retry.
	Extract(ctx context.Context, req ExtractionRequest) (*models.Extraction, error)

	// Health checks if the provider is reachable.
	Health(ctx context.Context) error
}

// Registry holds the providers available to a Router. It is populated at
// construction time and read-only afterwards.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(ps ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("provider is required")
	}
	id := p.ID()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.providers[id] = p
	return nil
}

// Get retrieves a provider by ID.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// All returns every registered provider ordered by ID.
func (r *Registry) All() []Provider {
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
