package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/clipfeed/newsbrief/pkg/config"
	"github.com/clipfeed/newsbrief/pkg/domain"
)

// SummaryUnavailable is substituted when summarization fails for an item,
// keeping the output sequence aligned with the input.
const SummaryUnavailable = "summary unavailable"

const summaryPrompt = "Summarize the following article in a short, neutral paragraph.\nTitle: %s\nBody: %s"

// Summarizer produces per-article summaries via an OpenAI-compatible API
type Summarizer struct {
	client *openai.Client
	config config.LLMConfig
}

// NewSummarizer creates an LLM summarizer
func NewSummarizer(cfg config.LLMConfig) *Summarizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	return &Summarizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Summarize generates one summary per item, in input order. Each item gets
// an independent completion call so one failure never blocks the rest; a
// failed item carries the fixed placeholder instead of being dropped. The
// body may be empty when the upstream fetch failed - the title alone still
// yields a usable summary.
func (s *Summarizer) Summarize(ctx context.Context, items []domain.NewsItem) []string {
	summaries := make([]string, len(items))
	for i, item := range items {
		summary, err := s.summarizeOne(ctx, item)
		if err != nil {
			lgr.Printf("[WARN] failed to summarize %q: %v", item.Title, err)
			summaries[i] = SummaryUnavailable
			continue
		}
		summaries[i] = summary
	}
	return summaries
}

func (s *Summarizer) summarizeOne(ctx context.Context, item domain.NewsItem) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: float32(s.config.Temperature),
		MaxTokens:   s.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(summaryPrompt, item.Title, item.Body),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary from llm")
	}
	return summary, nil
}
