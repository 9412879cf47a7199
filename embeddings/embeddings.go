// Package embeddings converts text into fixed-length vectors using either a
// local Ollama instance or the OpenAI embeddings API.
package embeddings

import (
	"context"
	"fmt"

	"github.com/finsight-ai/finsight/config"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:      cfg.Embeddings.Provider,
		Model:         cfg.Embeddings.Model,
		Dimension:     cfg.Embeddings.Dimension,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}

// checkDimension verifies a returned vector against the configured model
// dimension. A zero dimension disables the check.
func checkDimension(want int, vec []float32) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", want, len(vec))
	}
	return nil
}
