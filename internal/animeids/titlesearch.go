package animeids

import (
	"regexp"
	"strings"
)

// Candidate is one search result to score against the wanted title.
type Candidate struct {
	MALID int
	Title string
	Score float64
	Votes int
}

const matchThreshold = 50

var (
	yearSuffixRe   = regexp.MustCompile(`(?i)\s*[(\[]?(19|20)\d{2}[)\]]?\s*$`)
	seasonSuffixRe = regexp.MustCompile(`(?i)\s*[:\-]?\s*(season\s+\d+|s\d{1,2}|part\s+\d+|\d+(st|nd|rd|th)\s+season)\s*$`)
	punctRe        = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	possessiveRe   = regexp.MustCompile(`(?i)'s\b`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// TitleVariations derives progressively looser search queries from a
// title: the original, then with year and season suffixes stripped, then
// punctuation-free, article-free, possessive-free, and finally the first
// four words. At most five unique variations come back.
func TitleVariations(title string) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	var out []string
	add := func(v string) {
		v = strings.TrimSpace(spaceRe.ReplaceAllString(v, " "))
		if v == "" || len(out) >= 5 {
			return
		}
		for _, seen := range out {
			if strings.EqualFold(seen, v) {
				return
			}
		}
		out = append(out, v)
	}

	add(title)

	stripped := yearSuffixRe.ReplaceAllString(title, "")
	stripped = seasonSuffixRe.ReplaceAllString(stripped, "")
	add(stripped)

	noPunct := punctRe.ReplaceAllString(stripped, " ")
	add(noPunct)

	add(stripArticle(noPunct))

	add(possessiveRe.ReplaceAllString(noPunct, ""))

	words := strings.Fields(noPunct)
	if len(words) > 4 {
		add(strings.Join(words[:4], " "))
	}
	return out
}

func stripArticle(s string) string {
	lower := strings.ToLower(s)
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, article) {
			return s[len(article):]
		}
	}
	return s
}

// BestMatch scores every candidate against the wanted title and returns
// the winner, or false when nothing clears the threshold. Exact
// normalized matches score 100, substring containment 80, and word
// overlap up to 60; ties break on rating score, then vote count.
func BestMatch(title string, candidates []Candidate) (Candidate, bool) {
	want := matchKey(title)
	if want == "" {
		return Candidate{}, false
	}

	var best Candidate
	bestScore := 0
	for _, c := range candidates {
		got := matchKey(c.Title)
		if got == "" {
			continue
		}
		score := matchScore(want, got)
		if score > bestScore ||
			(score == bestScore && score > 0 && preferCandidate(c, best)) {
			best = c
			bestScore = score
		}
	}
	if bestScore <= matchThreshold {
		return Candidate{}, false
	}
	return best, true
}

func preferCandidate(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Votes > b.Votes
}

func matchScore(want, got string) int {
	if want == got {
		return 100
	}
	if strings.Contains(got, want) || strings.Contains(want, got) {
		return 80
	}
	// Jaccard word overlap, scaled to a 60-point ceiling.
	wantWords := wordSet(want)
	gotWords := wordSet(got)
	inter := 0
	for w := range wantWords {
		if gotWords[w] {
			inter++
		}
	}
	union := len(wantWords) + len(gotWords) - inter
	if union == 0 {
		return 0
	}
	return 60 * inter / union
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func matchKey(s string) string {
	s = punctRe.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
