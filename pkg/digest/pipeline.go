package digest

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/clipfeed/newsbrief/pkg/content"
	"github.com/clipfeed/newsbrief/pkg/domain"
)

// Searcher queries the news feed for a keyword
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]domain.NewsItem, error)
}

// BodyFetcher retrieves article bodies for a batch of items
type BodyFetcher interface {
	FetchBodies(ctx context.Context, items []domain.NewsItem) []content.Result
}

// Summarizer produces one summary per item
type Summarizer interface {
	Summarize(ctx context.Context, items []domain.NewsItem) []string
}

// Publisher persists a summarized bundle and returns a shareable reference
type Publisher interface {
	Publish(ctx context.Context, label, keyword string, cards []domain.Card) (ok bool, ref string)
}

// Result is the terminal state of one pipeline run
type Result struct {
	Status       domain.RunStatus
	Cards        []domain.Card
	ReferenceURL string
	Detail       string
}

// Pipeline runs the full collection sequence for one keyword:
// search, concurrent body fetch, per-item summarization, publish.
type Pipeline struct {
	searcher   Searcher
	fetcher    BodyFetcher
	summarizer Summarizer
	publisher  Publisher
}

// NewPipeline wires the pipeline stages together
func NewPipeline(searcher Searcher, fetcher BodyFetcher, summarizer Summarizer, publisher Publisher) *Pipeline {
	return &Pipeline{searcher: searcher, fetcher: fetcher, summarizer: summarizer, publisher: publisher}
}

// Run executes the pipeline for one keyword. The label titles the
// published document. No results is a normal outcome, not an error;
// partial fetch or summary failures degrade individual items but never
// abort the run. Only a publish failure yields RunFailure.
func (p *Pipeline) Run(ctx context.Context, label, keyword string) Result {
	items, err := p.searcher.Search(ctx, keyword)
	if err != nil {
		return Result{Status: domain.RunError, Detail: fmt.Sprintf("search: %v", err)}
	}
	if len(items) == 0 {
		lgr.Printf("[INFO] no articles found for %q", keyword)
		return Result{Status: domain.RunNoResults}
	}
	if len(items) > domain.MaxItems {
		items = items[:domain.MaxItems]
	}

	lgr.Printf("[INFO] collecting %d articles for %q", len(items), keyword)

	fetched := content.Items(p.fetcher.FetchBodies(ctx, items))

	summaries := p.summarizer.Summarize(ctx, fetched)
	for i := range fetched {
		fetched[i].Summary = summaries[i]
	}

	cards := domain.CardsFromItems(fetched)

	ok, ref := p.publisher.Publish(ctx, label, keyword, cards)
	if !ok {
		return Result{Status: domain.RunFailure, Cards: cards, Detail: "publish failed"}
	}

	lgr.Printf("[INFO] published digest for %q: %s", keyword, ref)
	return Result{Status: domain.RunSuccess, Cards: cards, ReferenceURL: ref}
}
