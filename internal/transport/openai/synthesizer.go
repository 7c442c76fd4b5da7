package openai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/domain"
	"github.com/kailas-cloud/reviewdex/internal/domain/synthesis"
)

// SynthesizerConfig holds chat completion settings.
type SynthesizerConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// Synthesizer writes an answer from a retrieval brief via chat completions.
type Synthesizer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewSynthesizer creates a chat-completion backed synthesizer.
func NewSynthesizer(cfg *SynthesizerConfig) *Synthesizer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Synthesize answers the brief's question grounded in its reviews.
func (s *Synthesizer) Synthesize(ctx context.Context, brief synthesis.Brief) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(brief)},
			{Role: openai.ChatMessageRoleUser, Content: brief.Question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w: %w", err, domain.ErrSynthesis)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices: %w", domain.ErrSynthesis)
	}

	s.logger.Debug("synthesis completed",
		zap.String("model", s.model),
		zap.Int("reviews", len(brief.Results)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies the chat endpoint is reachable via ListModels.
func (s *Synthesizer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// SystemPrompt renders the place context, aggregates and review excerpts.
func SystemPrompt(brief synthesis.Brief) string {
	var b strings.Builder
	m := brief.Metadata

	b.WriteString("You answer questions about a place using only the customer reviews below.\n")
	b.WriteString("If the reviews do not cover the question, say so.\n\n")

	fmt.Fprintf(&b, "Place: %s\n", fallback(m.Title, "unknown"))
	fmt.Fprintf(&b, "Address: %s\n", fallback(m.Address, "unknown"))
	if m.Rating > 0 {
		fmt.Fprintf(&b, "Overall rating: %.1f from %d reviews\n", m.Rating, m.ReviewCount)
	}

	if len(brief.Aggregates) > 0 {
		b.WriteString("\nAverage scores among the reviews below:\n")
		for _, a := range brief.Aggregates {
			if a.Present() {
				fmt.Fprintf(&b, "- %s: %.2f (%d ratings)\n", a.Field, *a.Mean, a.Count)
			} else {
				fmt.Fprintf(&b, "- %s: not rated\n", a.Field)
			}
		}
	}

	fmt.Fprintf(&b, "\nRelevant reviews (%d):\n", len(brief.Results))
	for i, r := range brief.Results {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(r.Text())
		b.WriteByte('\n')
	}
	if brief.CapReached {
		b.WriteString("\nOnly the most relevant reviews are shown; more may exist.\n")
	}
	return b.String()
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
