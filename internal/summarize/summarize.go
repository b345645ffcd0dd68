// Package summarize produces note summaries and quiz pairs through a
// chat completion model.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/starford/gebo/internal/models"
)

// Service generates summaries and question-answer pairs.
type Service struct {
	llm llms.Model
	log *slog.Logger
}

// New builds a service against an OpenAI-compatible endpoint.
func New(baseURL, model, apiKey string) (*Service, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("summarize: init llm: %w", err)
	}
	return &Service{llm: llm, log: slog.Default()}, nil
}

// NewWithModel wires an existing model, used by tests.
func NewWithModel(llm llms.Model) *Service {
	return &Service{llm: llm, log: slog.Default()}
}

// Summarize returns a prose summary of the extracted content. When the
// content is an HTML fragment the outer paragraph tags are stripped
// before prompting.
func (s *Service) Summarize(ctx context.Context, content string, isHTML bool) (string, error) {
	if isHTML {
		content = strings.TrimPrefix(content, "<p>")
		content = strings.TrimSuffix(content, "</p>")
	}
	prompt := content + " \n\nPlease provide a detailed summary of the above text."

	out, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		return "", fmt.Errorf("summarize: generate summary: %w", err)
	}

	summary := strings.TrimSpace(out)
	// Some models prefix the reply with ": " when continuing the prompt.
	if strings.HasPrefix(summary, ":") {
		summary = strings.TrimSpace(strings.TrimPrefix(summary, ":"))
	}
	return summary, nil
}

// GenerateQnA produces quiz pairs from a summary. The model is asked
// for five pairs; a different count is logged and accepted, but output
// that does not parse as question-answer blocks is an error.
func (s *Service) GenerateQnA(ctx context.Context, summary string) ([]models.QAPair, error) {
	prompt := fmt.Sprintf("Given the summary of the lecture %q, generate 5 question-answer pairs similar to the following example: \n"+
		"Question: What is the main topic of the lecture?\n"+
		"Answer: The main topic of the lecture is (main topic from summary). The answers should be sufficiently detailed.", summary)

	out, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		return nil, fmt.Errorf("summarize: generate qna: %w", err)
	}

	pairs, err := ParseQnA(out)
	if err != nil {
		return nil, err
	}
	if len(pairs) != 5 {
		s.log.Warn("unexpected qna pair count", "count", len(pairs))
	}
	return pairs, nil
}
