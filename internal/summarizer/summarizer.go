// Package summarizer produces short document summaries through an
// OpenAI-compatible chat endpoint.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"document-search/internal/config"
)

// maxPromptContent caps how much document text goes into the prompt.
const maxPromptContent = 4000

const promptTemplate = `Summarize the following document in two or three sentences. Mention what the document is about and any key topics. Reply with the summary only.

Filename: %s

%s`

type Summarizer struct {
	llm *openai.LLM
}

// New builds a summarizer for cfg, or nil when no endpoint is configured so
// indexing falls back to heuristic summaries.
func New(cfg config.LLMConfig) (*Summarizer, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, nil
	}
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return &Summarizer{llm: llm}, nil
}

// Summarize asks the model for a short summary of the document.
func (s *Summarizer) Summarize(ctx context.Context, path, content string) (string, error) {
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	prompt := fmt.Sprintf(promptTemplate, path, content)

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}
	resp, err := s.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate summary for %s: %w", path, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty summary response for %s", path)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
