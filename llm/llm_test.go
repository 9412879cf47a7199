package llm

import (
	"testing"

	"github.com/finsight-ai/finsight/config"
)

func TestNewClientOllama(t *testing.T) {
	cfg := config.Config{
		LLM: config.LLMConfig{
			Provider: config.ProviderOllama,
			Model:    "llama3.1:8b",
		},
		OllamaHost: "http://localhost:11434",
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("expected llm client, got error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if _, ok := client.(StreamClient); !ok {
		t.Fatal("expected ollama client to support streaming")
	}
}

func TestNewClientOpenAIRequiresAPIKey(t *testing.T) {
	cfg := config.Config{
		LLM: config.LLMConfig{
			Provider: config.ProviderOpenAI,
			Model:    "gpt-4o",
		},
	}

	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected error for missing OPENAI_API_KEY")
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	cfg := config.Config{
		LLM: config.LLMConfig{Provider: "mystery"},
	}

	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
