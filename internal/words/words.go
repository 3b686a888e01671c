package words

import (
	"math/rand"
	"strings"
	"sync"
)

// builtin is the base vocabulary every room draws from.
var builtin = []string{
	"cat", "dog", "house", "tree", "car", "sun", "moon", "star",
	"computer", "phone", "book", "chair", "table", "window", "door",
	"apple", "banana", "pizza", "coffee", "airplane", "bicycle",
	"guitar", "piano", "flower", "mountain", "ocean", "river",
	"elephant", "giraffe", "penguin", "butterfly", "robot", "castle",
	"rainbow", "umbrella", "glasses", "camera", "rocket", "astronaut",
}

// ChoiceCount is how many candidates a drawer is offered per turn.
const ChoiceCount = 3

// Pool is the word supply for one room: the built-in vocabulary
// unioned with room-specific custom words. Custom words are only ever
// added, never removed.
type Pool struct {
	mu     sync.Mutex
	custom map[string]struct{}
}

func NewPool() *Pool {
	return &Pool{custom: make(map[string]struct{})}
}

// AddCustom merges words into the pool. Blank entries are dropped.
func (p *Pool) AddCustom(words []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		p.custom[w] = struct{}{}
	}
}

// Choices draws ChoiceCount distinct words uniformly at random from
// the union pool. The pool is re-shuffled on every call. If the union
// is smaller than ChoiceCount the whole shuffled union is returned.
func (p *Pool) Choices() []string {
	p.mu.Lock()
	union := make([]string, 0, len(builtin)+len(p.custom))
	union = append(union, builtin...)
	for w := range p.custom {
		union = append(union, w)
	}
	p.mu.Unlock()

	rand.Shuffle(len(union), func(i, j int) {
		union[i], union[j] = union[j], union[i]
	})

	n := ChoiceCount
	if len(union) < n {
		n = len(union)
	}
	return union[:n]
}

// Mask renders word with reveal letters visible and the rest replaced
// by '_'. Positions are chosen uniformly at random without
// replacement, so successive calls with the same arguments reveal
// different letters.
func Mask(word string, reveal int) string {
	if reveal > len(word) {
		reveal = len(word)
	}
	masked := []byte(strings.Repeat("_", len(word)))
	for _, pos := range rand.Perm(len(word))[:reveal] {
		masked[pos] = word[pos]
	}
	return string(masked)
}
