package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// PDFClient extracts text from PDFs through a document OCR service.
type PDFClient struct {
	client    *resty.Client
	processor string
}

type ocrRequest struct {
	RawDocument ocrRawDocument `json:"rawDocument"`
}

type ocrRawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type ocrResponse struct {
	Document struct {
		Text string `json:"text"`
	} `json:"document"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewPDFClient builds a client for the OCR endpoint. processor is the
// service-side processor resource to invoke.
func NewPDFClient(endpoint, processor, apiKey string) *PDFClient {
	client := resty.New().
		SetBaseURL(endpoint).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &PDFClient{client: client, processor: processor}
}

// ExtractText sends the PDF bytes for OCR and returns cleaned text.
func (c *PDFClient) ExtractText(ctx context.Context, data []byte) (string, error) {
	req := ocrRequest{
		RawDocument: ocrRawDocument{
			Content:  base64.StdEncoding.EncodeToString(data),
			MimeType: "application/pdf",
		},
	}
	var out ocrResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/v1/%s:process", c.processor))
	if err != nil {
		return "", fmt.Errorf("extract: ocr request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("extract: ocr request: %s: %s", resp.Status(), out.Error.Message)
	}
	return cleanExtractedText(out.Document.Text), nil
}

// cleanExtractedText collapses whitespace runs, trims, and guarantees a
// trailing period so downstream prompts always end on a sentence.
func cleanExtractedText(s string) string {
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
