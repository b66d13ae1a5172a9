package animeids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleVariations(t *testing.T) {
	vars := TitleVariations("Mobile Suit Gundam: The Witch from Mercury (2022)")
	require.NotEmpty(t, vars)
	assert.Equal(t, "Mobile Suit Gundam: The Witch from Mercury (2022)", vars[0])
	assert.Contains(t, vars, "Mobile Suit Gundam: The Witch from Mercury")
	assert.Contains(t, vars, "Mobile Suit Gundam The Witch from Mercury")
	assert.Contains(t, vars, "Mobile Suit Gundam The")
	assert.LessOrEqual(t, len(vars), 5)
}

func TestTitleVariationsStripsSeasonSuffix(t *testing.T) {
	vars := TitleVariations("Spy x Family Season 2")
	assert.Contains(t, vars, "Spy x Family")
}

func TestTitleVariationsDedupes(t *testing.T) {
	vars := TitleVariations("Bleach")
	assert.Equal(t, []string{"Bleach"}, vars)
}

func TestTitleVariationsEmpty(t *testing.T) {
	assert.Nil(t, TitleVariations("   "))
}

func TestBestMatchExactWins(t *testing.T) {
	candidates := []Candidate{
		{MALID: 1, Title: "Cowboy Bebop: The Movie", Score: 8.4, Votes: 200000},
		{MALID: 2, Title: "Cowboy Bebop", Score: 8.7, Votes: 900000},
	}
	best, ok := BestMatch("Cowboy Bebop", candidates)
	require.True(t, ok)
	assert.Equal(t, 2, best.MALID)
}

func TestBestMatchSubstring(t *testing.T) {
	candidates := []Candidate{
		{MALID: 30, Title: "Frieren: Beyond Journey's End", Score: 9.3, Votes: 500000},
	}
	best, ok := BestMatch("Frieren", candidates)
	require.True(t, ok)
	assert.Equal(t, 30, best.MALID)
}

func TestBestMatchBelowThresholdRejected(t *testing.T) {
	candidates := []Candidate{
		{MALID: 7, Title: "Completely Different Show", Score: 9.9, Votes: 1},
	}
	_, ok := BestMatch("My Neighbor Totoro", candidates)
	assert.False(t, ok)
}

func TestBestMatchTieBreaksOnScoreThenVotes(t *testing.T) {
	candidates := []Candidate{
		{MALID: 1, Title: "Hunter x Hunter", Score: 8.4, Votes: 100},
		{MALID: 2, Title: "Hunter x Hunter", Score: 9.0, Votes: 100},
		{MALID: 3, Title: "Hunter x Hunter", Score: 9.0, Votes: 500},
	}
	best, ok := BestMatch("Hunter x Hunter", candidates)
	require.True(t, ok)
	assert.Equal(t, 3, best.MALID)
}

func TestBestMatchEmpty(t *testing.T) {
	_, ok := BestMatch("anything", nil)
	assert.False(t, ok)

	_, ok = BestMatch("", []Candidate{{MALID: 1, Title: "anything"}})
	assert.False(t, ok)
}
