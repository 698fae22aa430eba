package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ChatTurn is a single message in a conversation
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply generates an assistant response for a plain (non-news) conversation.
// Only user, assistant and system turns are forwarded to the model.
func (s *Summarizer) Reply(ctx context.Context, history []ChatTurn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant, openai.ChatMessageRoleSystem:
			messages = append(messages, openai.ChatCompletionMessage{Role: turn.Role, Content: turn.Content})
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: float32(s.config.Temperature),
		MaxTokens:   s.config.MaxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}
	return resp.Choices[0].Message.Content, nil
}
