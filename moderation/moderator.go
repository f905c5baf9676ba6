// Package moderation masks blacklisted words in chat messages before they are stored.
package moderation

import (
	"huddle/errors"
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Filter matches every blacklisted word in one pass over the message.
// Matching runs on a folded copy of the text (lowercase, leet speak undone,
// punctuation and spaces skipped) and the hits are masked in the original.
type Filter struct {
	machine *goahocorasick.Machine
	mask    rune
	log     *slog.Logger
}

// folded is the searchable form of a message, positions[i] is the index in the
// original runes of folded rune i.
type folded struct {
	runes     []rune
	positions []int
}

func NewFilter(words []string, mask rune, log *slog.Logger) (*Filter, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if f := fold([]rune(word)); len(f.runes) > 0 {
			patterns = append(patterns, f.runes)
		}
	}

	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{machine: machine, mask: mask, log: log}, nil
}

// Censor returns content with every match replaced rune by rune, separators inside a match included.
func (f *Filter) Censor(content string) string {
	original := []rune(content)
	text := fold(original)
	if len(text.runes) == 0 {
		return content
	}

	hits := f.machine.MultiPatternSearch(text.runes, false)
	if len(hits) == 0 {
		return content
	}

	for _, hit := range hits {
		start, end := hit.Pos, hit.Pos+len(hit.Word)
		if start < 0 || end > len(text.positions) {
			continue
		}
		for i := text.positions[start]; i <= text.positions[end-1]; i++ {
			original[i] = f.mask
		}
	}
	f.log.Debug("Message censored", "matches", len(hits))
	return string(original)
}

func fold(input []rune) folded {
	out := folded{
		runes:     make([]rune, 0, len(input)),
		positions: make([]int, 0, len(input)),
	}
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out.runes = append(out.runes, unicode.ToLower(r))
		out.positions = append(out.positions, i)
	}
	return out
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
