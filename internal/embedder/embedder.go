// Package embedder wires the configured LLM endpoint into a langchaingo
// embedder for the vector store.
package embedder

import (
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-search/internal/config"
)

// New builds an embedder for cfg. Endpoints without a key are treated as
// Ollama servers; keyed endpoints go through the OpenAI-compatible client.
func New(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	if cfg.Key == "" {
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}
