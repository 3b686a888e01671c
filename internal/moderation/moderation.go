package moderation

import "strings"

// Filter decides whether free-text chat may be broadcast. The room
// engine only knows this predicate, so the word list can later move
// behind an external service without touching the game.
type Filter interface {
	Blocked(text string) bool
}

// ListFilter blocks any text containing one of its entries,
// case-insensitively.
type ListFilter struct {
	words []string
}

func NewListFilter(words []string) *ListFilter {
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		lowered = append(lowered, strings.ToLower(w))
	}
	return &ListFilter{words: lowered}
}

// Default returns the built-in filter list.
func Default() *ListFilter {
	return NewListFilter([]string{"badword1", "badword2", "inappropriate"})
}

func (f *ListFilter) Blocked(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range f.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Permissive never blocks anything. Useful in tests.
type Permissive struct{}

func (Permissive) Blocked(string) bool { return false }
