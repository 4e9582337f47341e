package catalog

import (
	"strings"
	"unicode/utf8"
)

const minTokenLen = 3

type Set map[string]struct{}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) add(id string) { s[id] = struct{}{} }

// MatchMode selects how query tokens are matched against index keys.
type MatchMode int

const (
	// MatchSubstring includes every key containing the query token. This is
	// a scan over the vocabulary per token.
	MatchSubstring MatchMode = iota
	// MatchExact looks the token up directly.
	MatchExact
)

// Index is an immutable snapshot derived from the catalog. A new one is built
// on every mutation and published whole; nothing mutates it after BuildIndex
// returns.
type Index struct {
	Inverted map[string]Set
	Category map[string]Set
	Brand    map[string]Set
	Products map[string]Product

	order []string
	pos   map[string]int
	mode  MatchMode
}

// BuildIndex derives all lookup structures from products. It is a pure
// function of its input.
func BuildIndex(products []Product, mode MatchMode) *Index {
	ix := &Index{
		Inverted: make(map[string]Set),
		Category: make(map[string]Set),
		Brand:    make(map[string]Set),
		Products: make(map[string]Product, len(products)),
		order:    make([]string, 0, len(products)),
		pos:      make(map[string]int, len(products)),
		mode:     mode,
	}

	for _, p := range products {
		if _, dup := ix.Products[p.ID]; !dup {
			ix.pos[p.ID] = len(ix.order)
			ix.order = append(ix.order, p.ID)
		}
		ix.Products[p.ID] = p

		for _, tok := range Tokenize(p.Name + " " + p.Description) {
			addTo(ix.Inverted, tok, p.ID)
		}
		if p.Category != "" {
			addTo(ix.Category, p.Category, p.ID)
		}
		if p.Brand != "" {
			addTo(ix.Brand, p.Brand, p.ID)
		}
	}

	return ix
}

func addTo(m map[string]Set, key, id string) {
	s, ok := m[key]
	if !ok {
		s = make(Set)
		m[key] = s
	}
	s.add(id)
}

// Tokenize lowercases text, splits on whitespace and keeps tokens of at least
// three characters. Duplicates are kept; callers treat the result as a set.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}

func (ix *Index) Len() int { return len(ix.order) }

func (ix *Index) Vocabulary() int { return len(ix.Inverted) }

// AllIDs returns every indexed id.
func (ix *Index) AllIDs() Set {
	out := make(Set, len(ix.order))
	for _, id := range ix.order {
		out.add(id)
	}
	return out
}

// Search returns the ids matching every token of term. An empty term, or one
// without any indexable token, matches everything.
func (ix *Index) Search(term string) Set {
	tokens := Tokenize(term)
	if len(tokens) == 0 {
		return ix.AllIDs()
	}

	var result Set
	for _, tok := range tokens {
		matched := ix.matchToken(tok)
		if result == nil {
			result = matched
		} else {
			result = intersect(result, matched)
		}
		if len(result) == 0 {
			return Set{}
		}
	}
	return result
}

func (ix *Index) matchToken(tok string) Set {
	out := make(Set)

	if ix.mode == MatchExact {
		for id := range ix.Inverted[tok] {
			out.add(id)
		}
		return out
	}

	for key, ids := range ix.Inverted {
		if !strings.Contains(key, tok) {
			continue
		}
		for id := range ids {
			out.add(id)
		}
	}
	return out
}

// ByCategory returns a copy of the ids stored under category; empty when the
// category is unknown.
func (ix *Index) ByCategory(category string) Set {
	return copySet(ix.Category[category])
}

func (ix *Index) ByBrand(brand string) Set {
	return copySet(ix.Brand[brand])
}

func copySet(s Set) Set {
	out := make(Set, len(s))
	for id := range s {
		out.add(id)
	}
	return out
}

func intersect(a, b Set) Set {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(Set, len(a))
	for id := range a {
		if b.Has(id) {
			out.add(id)
		}
	}
	return out
}
