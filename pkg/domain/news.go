package domain

// MaxItems caps the number of articles carried through a single pipeline
// run, balancing LLM cost against digest density.
const MaxItems = 6

// NewsItem represents a single article moving through the pipeline.
// The feed client fills Title and Link, the content fetcher adds Body
// and the summarizer adds Summary.
type NewsItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Body    string `json:"body,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Card is the publishable view of a summarized article.
type Card struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

// CardsFromItems converts summarized items to cards, capped at MaxItems.
func CardsFromItems(items []NewsItem) []Card {
	n := len(items)
	if n > MaxItems {
		n = MaxItems
	}
	cards := make([]Card, 0, n)
	for _, item := range items[:n] {
		cards = append(cards, Card{Title: item.Title, Summary: item.Summary, Link: item.Link})
	}
	return cards
}
