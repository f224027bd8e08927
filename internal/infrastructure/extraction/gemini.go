// Package extraction turns scanned invoices and receipts into raw ledger
// records using a Gemini vision model.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/infrastructure/config"
	"github.com/meritledger/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const instruction = `You read scanned business documents and return one JSON object.
Fields: id, type, entity_id, entity_name, date, due_date, receipt_date, total,
tax_total, currency, confidence, items (name, qty, unit_price, tax_rate).
type is one of inv_rec (invoice we received), inv_sent (invoice we issued),
rec_rec (receipt we received), rec_sent (receipt we issued).
Dates use YYYY-MM-DD. Numbers are plain decimals without currency symbols.
confidence is 0 to 100 and reflects how legible the document is.
Write N/A for any field you cannot read. Never guess an id.`

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("extraction: empty model response")

// generator is the part of the genai client the extractor calls
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor implements reconciliation.Extractor
type GeminiExtractor struct {
	models  generator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiExtractor creates a Gemini API client and wraps it
func NewGeminiExtractor(ctx context.Context, cfg config.ExtractionConfig, logger *zap.Logger) (*GeminiExtractor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("extraction api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return newGeminiExtractor(client.Models, cfg, logger), nil
}

func newGeminiExtractor(models generator, cfg config.ExtractionConfig, logger *zap.Logger) *GeminiExtractor {
	return &GeminiExtractor{
		models:  models,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Extract sends the scan to the model and decodes the JSON it returns
func (e *GeminiExtractor) Extract(ctx context.Context, name string, content []byte) (*ledger.RawDocument, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("extraction: %s is empty", name)
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(content, storage.ContentType(name)),
			genai.NewPartFromText("Extract the document " + name + "."),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
	}

	start := time.Now()
	resp, err := e.models.GenerateContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var raw ledger.RawDocument
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		return nil, fmt.Errorf("extraction: decode model output for %s: %w", name, err)
	}
	e.logger.Info("Document extracted",
		zap.String("file", name),
		zap.String("document_id", raw.ID),
		zap.String("model", e.model),
		zap.Duration("latency", time.Since(start)),
	)
	return &raw, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// stripFence removes a markdown code fence some models wrap JSON in
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ reconciliation.Extractor = (*GeminiExtractor)(nil)
