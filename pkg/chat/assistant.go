package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/clipfeed/newsbrief/pkg/digest"
	"github.com/clipfeed/newsbrief/pkg/domain"
	"github.com/clipfeed/newsbrief/pkg/llm"
)

// Pipeline runs the news collection sequence for one keyword
type Pipeline interface {
	Run(ctx context.Context, label, keyword string) digest.Result
}

// Responder generates plain conversational replies
type Responder interface {
	Reply(ctx context.Context, history []llm.ChatTurn) (string, error)
}

// Response is the assistant's answer to one user message
type Response struct {
	Reply        string           `json:"reply"`
	Cards        []domain.Card    `json:"cards,omitempty"`
	ReferenceURL string           `json:"reference_url,omitempty"`
	NewsRequest  bool             `json:"news_request"`
	Status       domain.RunStatus `json:"status,omitempty"`
}

// Assistant routes user messages: news requests go through the collection
// pipeline, everything else gets a conversational LLM reply. Every
// exchange is appended to the durable history.
type Assistant struct {
	pipeline  Pipeline
	responder Responder
	history   *History
}

// NewAssistant creates the chat assistant
func NewAssistant(pipeline Pipeline, responder Responder, history *History) *Assistant {
	return &Assistant{pipeline: pipeline, responder: responder, history: history}
}

// Handle processes one user message and returns the assistant's response.
// Interactive news failures surface as inline reply text, never as errors;
// only a broken history file is reported back as an error.
func (a *Assistant) Handle(ctx context.Context, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, fmt.Errorf("empty message")
	}

	now := time.Now()
	turns := []Turn{{Role: "user", Content: text, Timestamp: now}}

	var resp Response
	if IsNewsRequest(text) {
		resp = a.handleNews(ctx, text)
	} else {
		resp = a.handleChat(ctx, text)
	}

	turns = append(turns, Turn{Role: "assistant", Content: resp.Reply, Timestamp: time.Now()})
	if len(resp.Cards) > 0 {
		turns = append(turns, Turn{Role: "news_cards", Cards: resp.Cards, Timestamp: time.Now()})
	}
	if err := a.history.Append(turns...); err != nil {
		return resp, fmt.Errorf("persist chat history: %w", err)
	}

	return resp, nil
}

func (a *Assistant) handleNews(ctx context.Context, text string) Response {
	keyword := ExtractKeyword(text)
	lgr.Printf("[INFO] news request, keyword %q", keyword)

	result := a.pipeline.Run(ctx, text, keyword)

	resp := Response{NewsRequest: true, Status: result.Status, Cards: result.Cards, ReferenceURL: result.ReferenceURL}
	switch result.Status {
	case domain.RunSuccess:
		resp.Reply = fmt.Sprintf("Found and summarized the latest articles. Saved digest: %s", result.ReferenceURL)
	case domain.RunFailure:
		resp.Reply = "Found and summarized the latest articles, but saving the digest failed. Check the publish logs."
	case domain.RunNoResults:
		resp.Reply = "Couldn't find any recent articles for that keyword."
	default:
		resp.Reply = "Something went wrong while collecting articles."
	}
	return resp
}

func (a *Assistant) handleChat(ctx context.Context, text string) Response {
	history := make([]llm.ChatTurn, 0)
	for _, turn := range a.history.Turns() {
		if turn.Role == "user" || turn.Role == "assistant" || turn.Role == "system" {
			history = append(history, llm.ChatTurn{Role: turn.Role, Content: turn.Content})
		}
	}
	history = append(history, llm.ChatTurn{Role: "user", Content: text})

	reply, err := a.responder.Reply(ctx, history)
	if err != nil {
		lgr.Printf("[WARN] chat reply failed: %v", err)
		return Response{Reply: "Sorry, I couldn't process that request."}
	}
	return Response{Reply: reply}
}
