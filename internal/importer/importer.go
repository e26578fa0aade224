package importer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopilot/invopilot/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Importer extracts structured invoice data from uploaded documents.
type Importer struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// New creates a new document importer.
func New(apiKey, model string, temperature float32, timeout time.Duration, logger *zap.Logger) *Importer {
	return &Importer{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// visionResponse is the JSON shape the model is asked to return.
type visionResponse struct {
	InvoiceNumber string  `json:"invoice_number"`
	VendorName    string  `json:"vendor_name"`
	Currency      string  `json:"currency"`
	TotalAmount   float64 `json:"total_amount"`
	IssueDate     string  `json:"issue_date"`
	LineItems     []struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unit_price"`
	} `json:"line_items"`
	Confidence float64 `json:"confidence"`
}

// Import reads a document at path and extracts invoice fields from it.
func (imp *Importer) Import(ctx context.Context, path string) (*models.ExtractedInvoice, error) {
	imp.logger.Info("Importing invoice document", zap.String("path", path))

	pages, err := imp.renderPages(path)
	if err != nil {
		imp.logger.Error("Failed to render document", zap.Error(err))
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, imp.timeout)
	defer cancel()

	return imp.extract(ctx, pages)
}

func (imp *Importer) extract(ctx context.Context, pages [][]byte) (*models.ExtractedInvoice, error) {
	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: visionPrompt,
		},
	}
	for i, page := range pages {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(page)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
		imp.logger.Debug("Added page to request",
			zap.Int("page", i+1),
			zap.Int("size_bytes", len(page)))
	}

	resp, err := imp.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       imp.model,
		MaxTokens:   4096,
		Temperature: imp.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You extract structured data from invoice documents. Always respond with valid JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		imp.logger.Error("Vision extraction failed", zap.Error(err))
		return nil, fmt.Errorf("vision extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from vision model")
	}

	content := resp.Choices[0].Message.Content
	var raw visionResponse
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		imp.logger.Error("Failed to parse vision response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse vision response: %w", err)
	}

	extracted := &models.ExtractedInvoice{
		InvoiceNumber: raw.InvoiceNumber,
		VendorName:    raw.VendorName,
		Currency:      raw.Currency,
		Amount:        raw.TotalAmount,
		Confidence:    raw.Confidence,
	}
	if raw.IssueDate != "" {
		if d, err := time.Parse("2006-01-02", raw.IssueDate); err == nil {
			extracted.IssueDate = &d
		} else {
			imp.logger.Warn("Unparseable issue date", zap.String("issue_date", raw.IssueDate))
		}
	}
	for _, li := range raw.LineItems {
		extracted.LineItems = append(extracted.LineItems, models.LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		})
	}

	if extracted.InvoiceNumber == "" && extracted.VendorName == "" {
		imp.logger.Warn("Extraction produced no identifying fields",
			zap.String("raw_response", content))
	}

	imp.logger.Info("Invoice document extracted",
		zap.String("invoice_number", extracted.InvoiceNumber),
		zap.String("vendor", extracted.VendorName),
		zap.Float64("amount", extracted.Amount),
		zap.Float64("confidence", extracted.Confidence))

	return extracted, nil
}

const visionPrompt = `Examine this invoice document and extract its fields.

Return a JSON object with this exact structure:
{
  "invoice_number": "string",
  "vendor_name": "string",
  "currency": "3-letter ISO code, e.g. USD",
  "total_amount": number,
  "issue_date": "YYYY-MM-DD",
  "line_items": [{"description": "string", "quantity": number, "unit_price": number}],
  "confidence": number between 0 and 1
}

Rules:
- Extract exactly what you see. Do not guess missing values.
- Amounts are plain numbers without currency symbols.
- Use "" or 0 for fields that are not visible.
- confidence reflects how legible and complete the document is.`
