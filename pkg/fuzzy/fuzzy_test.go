package fuzzy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"identical", "ping", "ping", 100},
		{"case insensitive", "Ping", "pING", 100},
		{"one edit", "pong", "ping", 75},
		{"empty both", "", "", 100},
		{"completely different", "abcd", "wxyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ratio(tt.a, tt.b))
		})
	}
}

func TestSearchRanksBestFirst(t *testing.T) {
	candidates := []string{"ping", "pings", "help", "playlist", "pin"}

	matches := Search("ping", candidates, WithMinScore(60))
	require.NotEmpty(t, matches)
	assert.Equal(t, "ping", matches[0].Name)
	assert.Equal(t, 100, matches[0].Score)

	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}
}

func TestSearchHonorsMinScore(t *testing.T) {
	matches := Search("ping", []string{"help", "playlist"})
	assert.Empty(t, matches)
}

func TestSearchHonorsLimit(t *testing.T) {
	candidates := []string{"cmd1", "cmd2", "cmd3", "cmd4", "cmd5", "cmd6", "cmd7"}
	matches := Search("cmd0", candidates, WithMinScore(50))
	assert.Len(t, matches, DefaultLimit)

	matches = Search("cmd0", candidates, WithMinScore(50), WithLimit(2))
	assert.Len(t, matches, 2)
}

func TestSearchTieBreakIsAlphabetical(t *testing.T) {
	matches := Search("cmdx", []string{"cmdb", "cmda"}, WithMinScore(50))
	require.Len(t, matches, 2)
	assert.Equal(t, "cmda", matches[0].Name)
	assert.Equal(t, "cmdb", matches[1].Name)
}

func TestSearchEmptyInputs(t *testing.T) {
	assert.Nil(t, Search("", []string{"ping"}))
	assert.Nil(t, Search("ping", nil))
}

func TestFormatResults(t *testing.T) {
	matches := []Match{{Name: "ping", Score: 100}, {Name: "pin", Score: 86}}
	out := FormatResults("!", matches, map[string]string{"ping": "Check bot latency."})

	assert.True(t, strings.HasPrefix(out, "Perhaps you wanted one of these? "))
	assert.Contains(t, out, "!ping -- Check bot latency.")
	assert.Contains(t, out, "!pin\n")
	assert.Contains(t, out, "```vhdl")
}

func TestFormatResultsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatResults("!", nil, nil))
}
