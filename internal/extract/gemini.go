package extract

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Extractor is the contract the core requires from the remote extraction
// service: statement content in, raw (untrusted) CSV-ish text out. The
// interface exists so sessions are testable without the network.
type Extractor interface {
	// ExtractCSV sends labelled statement text with the extraction instruction.
	ExtractCSV(ctx context.Context, label, content string) (string, error)

	// ExtractDocumentCSV sends a binary document (PDF, binary spreadsheet)
	// with a declared media type.
	ExtractDocumentCSV(ctx context.Context, mimeType string, data []byte) (string, error)
}

// DefaultModelName is the Gemini model used for extraction.
const DefaultModelName = "gemini-2.5-flash"

// GeminiExtractor implements Extractor against the Gemini API. Construct it
// once per process and pass it explicitly; it is safe for concurrent use.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a Gemini-backed extractor. Credentials come
// from the environment (GEMINI_API_KEY or application default credentials).
func NewGeminiExtractor(ctx context.Context, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// ExtractCSV implements Extractor for plain statement text.
func (g *GeminiExtractor) ExtractCSV(ctx context.Context, label, content string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: label + "\n\n" + content},
				{Text: extractionPrompt},
			},
		},
	}
	return g.generate(ctx, contents)
}

// ExtractDocumentCSV implements Extractor for binary documents.
func (g *GeminiExtractor) ExtractDocumentCSV(ctx context.Context, mimeType string, data []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
				{Text: extractionPrompt},
			},
		},
	}
	return g.generate(ctx, contents)
}

func (g *GeminiExtractor) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GeminiExtractor: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("GeminiExtractor: empty response from model")
	}
	return raw, nil
}
