package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/clipfeed/newsbrief/pkg/config"
	"github.com/clipfeed/newsbrief/pkg/domain"
)

const (
	apiVersion  = "2022-06-28"
	maxDiagLogs = 50
)

// Publisher persists summarized article bundles as Notion database pages
type Publisher struct {
	cfg    config.NotionConfig
	client *http.Client

	mu   sync.Mutex
	logs []string
}

// NewPublisher creates a document store publisher
func NewPublisher(cfg config.NotionConfig, timeout time.Duration) *Publisher {
	return &Publisher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether store credentials are configured
func (p *Publisher) Enabled() bool { return p.cfg.Enabled() }

// Publish creates a new page titled with the request label, carrying the
// keyword and today's date as properties and one heading + summary +
// source-link block group per card. Returns ok with the shareable page URL
// rewritten to the public domain. Every call creates a fresh page - there
// is no dedup. Failures never propagate as errors; they surface as
// (false, "") plus a diagnostic entry.
func (p *Publisher) Publish(ctx context.Context, label, keyword string, cards []domain.Card) (ok bool, ref string) {
	if !p.cfg.Enabled() {
		p.diag("notion api key or database id is not configured")
		return false, ""
	}

	payload, err := json.Marshal(p.buildPage(label, keyword, cards))
	if err != nil {
		p.diag(fmt.Sprintf("notion payload error: %v", err))
		return false, ""
	}

	pageURL, err := p.post(ctx, payload)
	if err != nil {
		p.diag(fmt.Sprintf("notion send failed: %v", err))
		return false, ""
	}

	p.diag("notion page created")
	return true, p.publicURL(pageURL)
}

// errRejected marks failures that retrying can't fix, like a non-2xx
// rejection from the store
var errRejected = errors.New("rejected by store")

// post sends the page to the store, retrying transient transport errors
// with backoff. Rejections (non-2xx) are terminal.
func (p *Publisher) post(ctx context.Context, payload []byte) (string, error) {
	var pageURL string
	retrier := repeater.NewBackoff(3, 100*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/pages", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", errors.Join(err, errRejected))
		}
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Notion-Version", apiVersion)

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("post page: %w", err) // repeater will retry this
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), errRejected)
		}

		var result struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decode response: %w", errors.Join(err, errRejected))
		}
		pageURL = result.URL
		return nil
	}, errRejected)
	if err != nil {
		return "", err
	}
	return pageURL, nil
}

// buildPage assembles the page creation request
func (p *Publisher) buildPage(label, keyword string, cards []domain.Card) map[string]any {
	if len(cards) > domain.MaxItems {
		cards = cards[:domain.MaxItems]
	}

	children := make([]map[string]any, 0, len(cards)*3)
	for i, card := range cards {
		children = append(children,
			block("heading_2", richText(fmt.Sprintf("%d. %s", i+1, card.Title), "")),
			block("paragraph", richText(card.Summary, "")),
			block("paragraph", richText("Read article", card.Link)),
		)
	}

	return map[string]any{
		"parent": map[string]any{"database_id": p.cfg.DatabaseID},
		"properties": map[string]any{
			"Title":   map[string]any{"title": []map[string]any{{"text": map[string]any{"content": label}}}},
			"Keyword": map[string]any{"rich_text": []map[string]any{{"text": map[string]any{"content": keyword}}}},
			"Date":    map[string]any{"date": map[string]any{"start": time.Now().Format("2006-01-02")}},
		},
		"children": children,
	}
}

func block(kind string, rich []map[string]any) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   kind,
		kind:     map[string]any{"rich_text": rich},
	}
}

func richText(content, link string) []map[string]any {
	text := map[string]any{"content": content}
	if link != "" {
		text["link"] = map[string]any{"url": link}
	}
	return []map[string]any{{"type": "text", "text": text}}
}

// publicURL rewrites the store's internal notion.so address to the
// configured public-facing domain. URLs that don't match the expected
// pattern come back unchanged.
func (p *Publisher) publicURL(pageURL string) string {
	if p.cfg.PublicDomain == "" || pageURL == "" {
		return pageURL
	}
	idx := strings.Index(pageURL, "notion.so/")
	if idx < 0 {
		return pageURL
	}
	return strings.TrimRight(p.cfg.PublicDomain, "/") + "/" + pageURL[idx+len("notion.so/"):]
}

// diag appends to the bounded in-process diagnostic trail, separate from
// the durable execution log.
func (p *Publisher) diag(msg string) {
	lgr.Printf("[INFO] notion: %s", msg)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, msg)
	if len(p.logs) > maxDiagLogs {
		p.logs = p.logs[len(p.logs)-maxDiagLogs:]
	}
}

// Logs returns a copy of the diagnostic trail, oldest first
func (p *Publisher) Logs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.logs))
	copy(out, p.logs)
	return out
}
