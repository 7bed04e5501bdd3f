// Package score rates how much a byte sequence looks like English text.
// Every scorer returns a non-negative value where higher means more plausible.
package score

import (
	"fmt"
	"sort"
	"strings"
)

// EnglishOrder lists the most common characters of English text, most
// frequent first.
const EnglishOrder = " etaoinshrdlcumwfgypbvkjxqz"

// DefaultTopN is the number of ranks compared by RankScorer.
const DefaultTopN = 20

// Scorer rates a candidate plaintext.
type Scorer interface {
	Score(text []byte) float64
}

// Func adapts a plain function to the Scorer interface.
type Func func(text []byte) float64

func (f Func) Score(text []byte) float64 { return f(text) }

// RankScorer compares the frequency rank order of a candidate against a
// reference order. The score is the number of characters in the reference's
// top TopN that also appear among the candidate's TopN most frequent
// characters.
//
// ASCII letters are case folded before counting. Characters with equal counts
// keep the order in which they were first seen, so ranking is deterministic.
type RankScorer struct {
	// TopN defaults to DefaultTopN when zero or negative.
	TopN int
	// Reference defaults to EnglishOrder when empty.
	Reference string
	// Strict scores any candidate containing a non-printable byte as zero.
	Strict bool
}

// NewRankScorer returns a RankScorer over EnglishOrder.
func NewRankScorer(topN int, strict bool) *RankScorer {
	return &RankScorer{TopN: topN, Strict: strict}
}

func (s *RankScorer) Score(text []byte) float64 {
	if len(text) == 0 {
		return 0
	}
	if s.Strict && !Printable(text) {
		return 0
	}

	ref := s.Reference
	if ref == "" {
		ref = EnglishOrder
	}
	n := s.TopN
	if n <= 0 {
		n = DefaultTopN
	}

	ranks := FrequencyOrder(text)
	var top [256]bool
	for i := 0; i < len(ranks) && i < n; i++ {
		top[ranks[i]] = true
	}

	matches := 0
	for i := 0; i < len(ref) && i < n; i++ {
		if top[ref[i]] {
			matches++
		}
	}
	return float64(matches)
}

// FrequencyOrder returns the distinct case-folded bytes of text, most frequent
// first. Ties keep first-seen order.
func FrequencyOrder(text []byte) []byte {
	var counts [256]int
	order := make([]byte, 0, 32)
	for _, b := range text {
		f := Fold(b)
		if counts[f] == 0 {
			order = append(order, f)
		}
		counts[f]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}

// Fold lowercases ASCII letters and leaves every other byte alone.
func Fold(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// Printable reports whether every byte is printable ASCII or ASCII whitespace.
func Printable(text []byte) bool {
	for _, b := range text {
		if !printableByte(b) {
			return false
		}
	}
	return true
}

func printableByte(b byte) bool {
	if b >= 0x20 && b <= 0x7e {
		return true
	}
	switch b {
	case '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Method names a scoring algorithm selectable from configuration.
type Method string

const (
	MethodRank       Method = "rank"
	MethodChiSquared Method = "chi2"
)

// Options configures New.
type Options struct {
	Method Method
	TopN   int
	Strict bool
	// Table replaces the built-in reference. Nil keeps EnglishOrder for rank
	// scoring and DefaultTable for chi-squared scoring.
	Table *Table
}

// New builds the scorer described by opts.
func New(opts Options) (Scorer, error) {
	switch Method(strings.ToLower(string(opts.Method))) {
	case "", MethodRank:
		rs := &RankScorer{TopN: opts.TopN, Strict: opts.Strict}
		if opts.Table != nil {
			rs.Reference = opts.Table.Order()
		}
		return rs, nil
	case MethodChiSquared:
		table := DefaultTable()
		if opts.Table != nil {
			table = *opts.Table
		}
		return &ChiSquaredScorer{Table: table, Strict: opts.Strict}, nil
	default:
		return nil, fmt.Errorf("unknown scoring method %q", opts.Method)
	}
}
