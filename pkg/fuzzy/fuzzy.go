// Package fuzzy provides similarity search over command names, used to suggest
// alternatives when a user invokes a command that does not exist.
package fuzzy

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	// DefaultMinScore is the minimum similarity (0-100) a candidate must reach
	// to be suggested.
	DefaultMinScore = 80

	// DefaultLimit caps how many suggestions a search returns.
	DefaultLimit = 5
)

// Match is a single search result
type Match struct {
	Name  string // Candidate command name
	Score int    // Similarity score, 0 (unrelated) to 100 (identical)
}

// Options configures a search
type Options struct {
	MinScore int
	Limit    int
}

// Option mutates search Options
type Option func(*Options)

// WithMinScore sets the minimum score for matches
func WithMinScore(score int) Option {
	return func(o *Options) {
		o.MinScore = score
	}
}

// WithLimit sets the maximum number of matches returned
func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

// Search returns the candidates most similar to term, best first. Scoring is a
// case-insensitive Levenshtein ratio; ties break alphabetically so results are
// stable across runs.
func Search(term string, candidates []string, opts ...Option) []Match {
	o := Options{MinScore: DefaultMinScore, Limit: DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if term == "" || len(candidates) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		score := Ratio(term, candidate)
		if score >= o.MinScore {
			matches = append(matches, Match{Name: candidate, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})

	if len(matches) > o.Limit {
		matches = matches[:o.Limit]
	}
	return matches
}

// Ratio computes a 0-100 similarity score between two strings from their
// Levenshtein distance, ignoring case.
func Ratio(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 100
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}

	distance := fuzzy.LevenshteinDistance(a, b)
	return int(float64(longest-distance) / float64(longest) * 100)
}

// FormatResults renders matches as a suggestion block for chat output. prefix
// is the command prefix shown before each name; descriptions maps a command
// name to its one-line help text and may be nil.
func FormatResults(prefix string, matches []Match, descriptions map[string]string) string {
	if len(matches) == 0 {
		return ""
	}

	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		if desc := descriptions[m.Name]; desc != "" {
			lines = append(lines, fmt.Sprintf("%s%s -- %s", prefix, m.Name, desc))
		} else {
			lines = append(lines, prefix+m.Name)
		}
	}
	// vhdl highlighting renders the "--" help separator as a comment.
	return "Perhaps you wanted one of these? " + box(strings.Join(lines, "\n"), "vhdl")
}

// box wraps text in a fenced code block with an optional language tag.
func box(text, lang string) string {
	return fmt.Sprintf("```%s\n%s\n```", lang, text)
}
