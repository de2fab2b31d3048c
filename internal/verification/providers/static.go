package providers

import (
	"context"
	"maps"

	"docverify/internal/verification/models"
)

// StaticProvider returns a fixed extraction for every document. It serves
// local runs where no extraction endpoint is configured.
type StaticProvider struct {
	id         string
	confidence float64
	fields     map[string]any
}

func NewStaticProvider(id string, confidence float64, fields map[string]any) *StaticProvider {
	return &StaticProvider{id: id, confidence: confidence, fields: fields}
}

func (p *StaticProvider) ID() string {
	return p.id
}

func (p *StaticProvider) Capabilities() Capabilities {
	return Capabilities{Protocol: ProtocolStatic, Version: "static"}
}

func (p *StaticProvider) Extract(ctx context.Context, req ExtractionRequest) (*models.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields := maps.Clone(p.fields)
	if fields == nil {
		fields = map[string]any{}
	}
	if _, ok := fields["document_class"]; !ok {
		fields["document_class"] = string(req.Class)
	}
	return &models.Extraction{
		ProviderID: p.id,
		Confidence: p.confidence,
		Fields:     fields,
		Metadata:   map[string]string{"mode": "static"},
	}, nil
}

func (p *StaticProvider) Health(ctx context.Context) error {
	return ctx.Err()
}
