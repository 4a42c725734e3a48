package services

import (
	"github.com/sahilm/fuzzy"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

// SearchResult is a fuzzy match against a bookmark title or URL.
type SearchResult struct {
	Bookmark       models.Bookmark `json:"bookmark"`
	MatchedField   string          `json:"matched_field"`
	MatchedIndexes []int           `json:"matched_indexes"`
	Score          int             `json:"score"`
}

type bookmarkTitles []models.Bookmark

func (bt bookmarkTitles) String(i int) string { return bt[i].Title }
func (bt bookmarkTitles) Len() int            { return len(bt) }

type bookmarkURLs []models.Bookmark

func (bu bookmarkURLs) String(i int) string { return bu[i].URL }
func (bu bookmarkURLs) Len() int            { return len(bu) }

// FuzzySearchBookmarks matches titles first and only falls back to URLs when no
// title matches. Results are sorted best first and capped at limit when limit > 0.
func FuzzySearchBookmarks(bookmarks []models.Bookmark, query string, limit int) []SearchResult {
	if query == "" || len(bookmarks) == 0 {
		return []SearchResult{}
	}

	field := "title"
	matches := fuzzy.FindFrom(query, bookmarkTitles(bookmarks))
	if len(matches) == 0 {
		field = "url"
		matches = fuzzy.FindFrom(query, bookmarkURLs(bookmarks))
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       bookmarks[m.Index],
			MatchedField:   field,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
