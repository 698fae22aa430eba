package chat

import "strings"

// trigger words marking a message as a news-request
var newsTriggers = []string{
	"news", "article", "articles", "headlines", "summarize", "summary",
	"기사", "뉴스", "요약",
}

// filler words stripped from a news request to leave the search keyword
var stopWords = map[string]bool{
	"news": true, "article": true, "articles": true, "headlines": true,
	"summarize": true, "summary": true, "search": true, "find": true,
	"show": true, "me": true, "the": true, "a": true, "an": true,
	"about": true, "on": true, "for": true, "latest": true, "recent": true,
	"today": true, "please": true, "get": true, "give": true, "related": true,
	"기사": true, "뉴스": true, "요약": true, "검색": true, "찾아": true,
	"찾아줘": true, "보여": true, "보여줘": true, "알려": true, "알려줘": true,
	"관련": true, "최신": true, "오늘": true, "최근": true, "관한": true,
	"대한": true, "해줘": true, "주세요": true, "해주세요": true, "원해": true,
	"원합니다": true, "보고": true, "싶어": true, "싶습니다": true, "해": true,
	"줘": true, "을": true, "를": true, "의": true, "에": true, "대해": true,
	"대하여": true,
}

// IsNewsRequest reports whether the message asks for news collection
func IsNewsRequest(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, trigger := range newsTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// ExtractKeyword strips filler words from a news request, leaving the
// search keyword. May return empty when the request carries no subject.
func ExtractKeyword(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if stopWords[strings.ToLower(w)] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}
