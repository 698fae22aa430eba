package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/clipfeed/newsbrief/pkg/domain"
)

// Client searches a news RSS endpoint for keyword matches
type Client struct {
	parser    *gofeed.Parser
	sanitizer *bluemonday.Policy
	baseURL   string
	language  string
	country   string
	timeout   time.Duration
}

// NewClient creates a news search client. The base URL points at a
// google-news style RSS search endpoint and is overridable for tests.
func NewClient(baseURL, language, country string, timeout time.Duration) *Client {
	return &Client{
		parser:    gofeed.NewParser(),
		sanitizer: bluemonday.StrictPolicy(),
		baseURL:   baseURL,
		language:  language,
		country:   country,
		timeout:   timeout,
	}
}

// Search queries the feed for the keyword and returns up to domain.MaxItems
// candidate articles in feed order, title and link only. An empty keyword
// short-circuits to an empty result. Transport and parse failures are
// logged and also reported as "no results" rather than errors - the
// pipeline treats a dead feed the same as an empty one.
func (c *Client) Search(ctx context.Context, keyword string) ([]domain.NewsItem, error) {
	if strings.TrimSpace(keyword) == "" {
		return []domain.NewsItem{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parsed, err := c.parser.ParseURLWithContext(c.searchURL(keyword), ctx)
	if err != nil {
		lgr.Printf("[WARN] feed search failed for %q: %v", keyword, err)
		return []domain.NewsItem{}, nil
	}

	items := make([]domain.NewsItem, 0, domain.MaxItems)
	for _, entry := range parsed.Items {
		if len(items) >= domain.MaxItems {
			break
		}
		items = append(items, domain.NewsItem{
			Title: strings.TrimSpace(c.sanitizer.Sanitize(entry.Title)),
			Link:  entry.Link,
		})
	}
	return items, nil
}

// searchURL builds the keyword query with locale parameters
func (c *Client) searchURL(keyword string) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("hl", c.language)
	q.Set("gl", c.country)
	q.Set("ceid", fmt.Sprintf("%s:%s", c.country, c.language))
	return c.baseURL + "?" + q.Encode()
}
