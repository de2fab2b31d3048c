package providers

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"docverify/internal/verification/models"
)

const (
	extractionPath   = "/v1/extractions"
	healthPath       = "/health"
	maxResponseBytes = 4 << 20
	schemaURL        = "extraction-response.schema.json"
)

//go:embed schema/extraction-response.schema.json
var extractionSchemaJSON string

var extractionSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, strings.NewReader(extractionSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add extraction schema: %v", err))
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile extraction schema: %v", err))
	}
	return schema
}

// HTTPProvider calls a certified extraction service over JSON/HTTP.
type HTTPProvider struct {
	id      string
	baseURL string
	apiKey  string
	client  *http.Client
	classes []models.DocumentClass
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithClasses advertises the document classes the provider handles.
func WithClasses(classes ...models.DocumentClass) HTTPOption {
	return func(p *HTTPProvider) {
		p.classes = classes
	}
}

func NewHTTPProvider(id, baseURL, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &HTTPProvider{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPProvider) ID() string {
	return p.id
}

func (p *HTTPProvider) Capabilities() Capabilities {
	return Capabilities{
		Protocol: ProtocolHTTP,
		Version:  "v1",
		Classes:  p.classes,
	}
}

type extractionRequestBody struct {
	DocumentID    string `json:"document_id"`
	DocumentClass string `json:"document_class"`
	ContentType   string `json:"content_type"`
	Filename      string `json:"filename,omitempty"`
	KeyID         string `json:"key_id,omitempty"`
	Document      []byte `json:"document"`
}

type extractionResponseBody struct {
	RequestID       string         `json:"request_id"`
	ProviderVersion string         `json:"provider_version"`
	Confidence      float64        `json:"confidence"`
	Fields          map[string]any `json:"fields"`
	ExtractedAt     string         `json:"extracted_at"`
}

func (p *HTTPProvider) Extract(ctx context.Context, req ExtractionRequest) (*models.Extraction, error) {
	body, err := json.Marshal(extractionRequestBody{
		DocumentID:    req.DocumentID,
		DocumentClass: string(req.Class),
		ContentType:   req.ContentType,
		Filename:      req.Filename,
		KeyID:         req.KeyID,
		Document:      req.Payload,
	})
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.id, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+extractionPath, bytes.NewReader(body))
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.id, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, Classify(p.id, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, Classify(p.id, err)
	}
	ext, err := parseExtractionResponse(p.id, resp.StatusCode, respBody)
	if err != nil {
		return nil, err
	}
	return ext, nil
}

func (p *HTTPProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+healthPath, nil)
	if err != nil {
		return NewProviderError(ErrorInternal, p.id, "build health request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Classify(p.id, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return NewProviderError(ErrorProviderOutage, p.id, fmt.Sprintf("health returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// parseExtractionResponse maps the HTTP status and validates the body against
// the extraction response schema.
func parseExtractionResponse(providerID string, status int, body []byte) (*models.Extraction, error) {
	if category, failed := categoryForStatus(status); failed {
		return nil, NewProviderError(category, providerID, fmt.Sprintf("unexpected status %d", status), nil)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, NewProviderError(ErrorBadData, providerID, "malformed response", err)
	}
	if err := extractionSchema.Validate(raw); err != nil {
		return nil, NewProviderError(ErrorBadData, providerID, "response violates contract", err)
	}

	var parsed extractionResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewProviderError(ErrorBadData, providerID, "malformed response", err)
	}

	ext := &models.Extraction{
		ProviderID: providerID,
		Confidence: parsed.Confidence,
		Fields:     parsed.Fields,
		Metadata:   map[string]string{},
	}
	if t, err := time.Parse(time.RFC3339, parsed.ExtractedAt); err == nil {
		ext.ExtractedAt = t.UTC()
	}
	if parsed.RequestID != "" {
		ext.Metadata["request_id"] = parsed.RequestID
	}
	if parsed.ProviderVersion != "" {
		ext.Metadata["provider_version"] = parsed.ProviderVersion
	}
	return ext, nil
}

func categoryForStatus(status int) (ErrorCategory, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuthentication, true
	case status == http.StatusTooManyRequests:
		return ErrorRateLimited, true
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrorRejected, true
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return ErrorTimeout, true
	case status >= 500:
		return ErrorProviderOutage, true
	default:
		return ErrorBadData, true
	}
}
