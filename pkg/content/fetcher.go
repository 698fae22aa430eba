package content

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/clipfeed/newsbrief/pkg/domain"
)

// Result holds the outcome of a single body fetch. A failed fetch keeps
// the item with an empty body and records the error, so callers can tell
// "genuinely empty page" from "fetch failed".
type Result struct {
	Item domain.NewsItem
	Err  error
}

// Fetcher retrieves article bodies over HTTP and extracts paragraph text
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewFetcher creates a content fetcher with a per-article timeout
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// FetchBodies fetches every item's article body concurrently. The returned
// slice has the same length and order as the input; each entry carries the
// item with its body populated, or the body left empty plus the fetch
// error. One dead site never blocks the rest of the batch.
func (f *Fetcher) FetchBodies(ctx context.Context, items []domain.NewsItem) []Result {
	results := make([]Result, len(items))

	var g errgroup.Group
	for i, item := range items {
		results[i] = Result{Item: item}
		g.Go(func() error {
			body, err := f.fetchBody(ctx, item.Link)
			if err != nil {
				lgr.Printf("[WARN] failed to fetch body from %s: %v", item.Link, err)
				results[i].Err = err
				return nil // isolated per item, never fail the group
			}
			results[i].Item.Body = body
			return nil
		})
	}
	_ = g.Wait() // workers always return nil

	return results
}

// fetchBody retrieves a single page and concatenates the text of all
// paragraph blocks, trimmed, in document order.
func (f *Fetcher) fetchBody(ctx context.Context, link string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, link)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page %s: %w", link, err)
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		paragraphs = append(paragraphs, sel.Text())
	})

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}

// Items strips fetch outcomes down to the item slice, preserving order.
func Items(results []Result) []domain.NewsItem {
	items := make([]domain.NewsItem, len(results))
	for i, r := range results {
		items[i] = r.Item
	}
	return items
}
