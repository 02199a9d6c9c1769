// Package menu provides a deterministic, concurrency-safe in-memory fuzzy
// index over a restaurant's menu items, plus a per-restaurant catalog cache.
// The index is intentionally small and dependency-free, but engineered with
// production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//   - Unicode-aware matching so CJK item names work without tokenization
//
// Scoring is a partial-ratio similarity: each searchable field (English
// name, Chinese name, keywords) is aligned against the query and the best
// window similarity wins, so a dish name quoted verbatim inside a longer
// sentence scores 1.0.
package menu

import (
	"sort"
	"strings"

	"github.com/erichecan/AIrest/internal/domain"
)

// Match is a ranked menu item with its similarity score in [0,1].
type Match struct {
	Item  domain.MenuItem
	Score float64
}

type doc struct {
	item   domain.MenuItem
	fields [][]rune // lowercased searchable fields
}

// Index is an immutable fuzzy index over one restaurant's menu.
type Index struct {
	docs []doc
	byID map[string]int
}

// NewIndex builds an Index from the given items. Fields are lowercased at
// construction time; empty fields are skipped.
func NewIndex(items []domain.MenuItem) *Index {
	ix := &Index{
		docs: make([]doc, 0, len(items)),
		byID: make(map[string]int, len(items)),
	}
	for _, it := range items {
		d := doc{item: it}
		for _, f := range append([]string{it.NameEN, it.NameZH}, it.Keywords...) {
			f = strings.ToLower(strings.TrimSpace(f))
			if f != "" {
				d.fields = append(d.fields, []rune(f))
			}
		}
		if len(d.fields) == 0 {
			continue
		}
		ix.byID[it.ID] = len(ix.docs)
		ix.docs = append(ix.docs, d)
	}
	return ix
}

// Len reports the number of indexed items.
func (ix *Index) Len() int { return len(ix.docs) }

// ItemByID returns the indexed item with the given id.
func (ix *Index) ItemByID(id string) (*domain.MenuItem, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return nil, false
	}
	item := ix.docs[i].item
	return &item, true
}

// TopMatches returns up to k items scoring at least cutoff, best first.
// Ties are broken by item id for stable output.
func (ix *Index) TopMatches(query string, k int, cutoff float64) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(ix.docs) == 0 {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	q := []rune(query)

	buf := make([]Match, 0, len(ix.docs))
	for _, d := range ix.docs {
		best := 0.0
		for _, f := range d.fields {
			if s := partialRatio(f, q); s > best {
				best = s
			}
		}
		if best >= cutoff && best > 0 {
			buf = append(buf, Match{Item: d.item, Score: best})
		}
	}
	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].Item.ID < buf[b].Item.ID
	})
	if len(buf) > k {
		buf = buf[:k]
	}
	return buf
}

// FindBestMatch returns the single closest item, or nil when nothing in the
// menu resembles the query at all.
func (ix *Index) FindBestMatch(query string) (*domain.MenuItem, float64) {
	ms := ix.TopMatches(query, 1, 0.0)
	if len(ms) == 0 {
		return nil, 0
	}
	item := ms[0].Item
	return &item, ms[0].Score
}

// partialRatio aligns the shorter rune sequence against every window of the
// longer one and returns the best normalized similarity. A field contained
// verbatim in the query (or vice versa) scores 1.0.
func partialRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	best := 0.0
	for start := 0; start+len(short) <= len(long); start++ {
		window := long[start : start+len(short)]
		if s := similarity(short, window); s > best {
			best = s
			if best == 1.0 {
				return best
			}
		}
	}
	// Shorter than one window apart: compare whole strings once.
	if best == 0 {
		best = similarity(short, long)
	}
	return best
}

// similarity is 1 - levenshtein/len over equal-or-near length sequences.
func similarity(a, b []rune) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 1
	}
	d := levenshtein(a, b)
	return 1 - float64(d)/float64(n)
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
