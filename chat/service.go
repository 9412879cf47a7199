// Package chat composes retrieval and generation: it retrieves context for a
// question, builds the prompt, and returns the model's answer.
package chat

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/finsight-ai/finsight/llm"
	"github.com/finsight-ai/finsight/retrieval"
)

const (
	defaultSimilarityLimit = 5
	snippetLimit           = 500
)

// Retriever is satisfied by both retrieval.Retriever and
// retrieval.HybridRetriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Chunk, error)
}

type Service struct {
	retriever Retriever
	llm       llm.Client
	logger    *log.Logger
}

type Config struct {
	SimilarityLimit int
}

func NewService(retriever Retriever, llmClient llm.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		retriever: retriever,
		llm:       llmClient,
		logger:    logger,
	}
}

func (s *Service) Chat(ctx context.Context, question string, cfg Config) (Response, error) {
	resp, _, err := s.chat(ctx, question, cfg, nil, nil)
	return resp, err
}

// ChatStream runs the chat workflow while streaming the LLM output through
// streamFn. The history slice holds prior turns (excluding the system prompt)
// and the returned slice extends it with the latest user/assistant pair. When
// the backend cannot stream, the callback receives the full answer once.
func (s *Service) ChatStream(
	ctx context.Context,
	question string,
	cfg Config,
	history []llm.Message,
	streamFn func(string) error,
) (Response, []llm.Message, error) {
	return s.chat(ctx, question, cfg, history, streamFn)
}

func (s *Service) chat(
	ctx context.Context,
	question string,
	cfg Config,
	history []llm.Message,
	streamFn func(string) error,
) (Response, []llm.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, nil, fmt.Errorf("question cannot be empty")
	}
	if s.retriever == nil {
		return Response{}, nil, fmt.Errorf("retriever is not configured")
	}
	if s.llm == nil {
		return Response{}, nil, fmt.Errorf("llm client is not configured")
	}

	limit := cfg.SimilarityLimit
	if limit <= 0 {
		limit = defaultSimilarityLimit
	}

	chunks, err := s.retriever.Retrieve(ctx, question, limit)
	if err != nil {
		return Response{}, nil, fmt.Errorf("retrieve context: %w", err)
	}

	if len(chunks) == 0 {
		s.logger.Printf("no context available for question, answering without knowledge base")
	}

	sources := mergeSources(chunks)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt()})
	messages = append(messages, history...)
	userMessage := llm.Message{Role: llm.RoleUser, Content: BuildPrompt(question, chunks)}
	messages = append(messages, userMessage)

	var answer string
	if streamFn != nil {
		answer, err = s.generateStream(ctx, messages, streamFn)
	} else {
		answer, err = s.llm.Generate(ctx, messages)
	}
	if err != nil {
		return Response{}, nil, fmt.Errorf("llm generate: %w", err)
	}

	answer = strings.TrimSpace(answer)

	updatedHistory := make([]llm.Message, 0, len(history)+2)
	updatedHistory = append(updatedHistory, history...)
	updatedHistory = append(updatedHistory, userMessage, llm.Message{Role: llm.RoleAssistant, Content: answer})

	return Response{Answer: answer, Sources: sources}, updatedHistory, nil
}

func (s *Service) generateStream(ctx context.Context, messages []llm.Message, streamFn func(string) error) (string, error) {
	if streamClient, ok := s.llm.(llm.StreamClient); ok {
		var builder strings.Builder
		err := streamClient.GenerateStream(ctx, messages, func(chunk string) error {
			if chunk == "" {
				return nil
			}
			builder.WriteString(chunk)
			return streamFn(chunk)
		})
		if err != nil {
			return "", err
		}
		return builder.String(), nil
	}

	answer, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return answer, streamFn(answer)
}

// BuildPrompt formats the user message: the question followed by the numbered
// context block. The context section is present but empty when no chunks were
// retrieved, so generation proceeds either way.
func BuildPrompt(question string, chunks []retrieval.Chunk) string {
	var sb strings.Builder
	sb.WriteString("Question:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nContext:\n")
	for idx, chunk := range chunks {
		fmt.Fprintf(&sb, "[Source %d] %s (%s)\n%s\n\n", idx+1, chunk.Title, chunk.Path, strings.TrimSpace(chunk.Content))
	}
	sb.WriteString("\nAnswer based on the provided context. If the context does not cover the question, say so and answer from general financial knowledge, noting the uncertainty.")
	return sb.String()
}

func systemPrompt() string {
	return "You are an AI finance assistant. Ground your answers in the supplied context, citing Source numbers in brackets (e.g., [Source 1]) when you draw from it. Be precise with financial terminology and never invent figures."
}

func mergeSources(chunks []retrieval.Chunk) []Source {
	grouped := make(map[string]*Source, len(chunks))
	order := make([]string, 0, len(chunks))

	for _, chunk := range chunks {
		source, ok := grouped[chunk.DocumentID]
		if !ok {
			source = &Source{
				DocumentID: chunk.DocumentID,
				Title:      chunk.Title,
				Path:       chunk.Path,
				Score:      chunk.Score,
			}
			grouped[chunk.DocumentID] = source
			order = append(order, chunk.DocumentID)
		} else if chunk.Score > source.Score {
			source.Score = chunk.Score
		}

		snippet := strings.TrimSpace(chunk.Content)
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit] + "..."
		}
		if source.Snippet == "" {
			source.Snippet = snippet
		} else if !strings.Contains(source.Snippet, snippet) {
			source.Snippet += "\n---\n" + snippet
		}
	}

	sources := make([]Source, 0, len(grouped))
	for _, id := range order {
		sources = append(sources, *grouped[id])
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Score > sources[j].Score
	})

	return sources
}
