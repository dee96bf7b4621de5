package subtitle

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
)

// RankCandidates orders search results by how well their release name
// matches the title. Unmatched candidates keep their original order after the
// matched ones.
func RankCandidates(title string, candidates []Candidate) []Candidate {
	pattern := squash(title)
	if pattern == "" || len(candidates) < 2 {
		return candidates
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		name := c.Release
		if name == "" {
			name = c.FileName
		}
		names[i] = squash(name)
	}

	matches := fuzzy.Find(pattern, names)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	ranked := make([]Candidate, 0, len(candidates))
	seen := make(map[int]bool, len(matches))
	for _, m := range matches {
		ranked = append(ranked, candidates[m.Index])
		seen[m.Index] = true
	}
	for i, c := range candidates {
		if !seen[i] {
			ranked = append(ranked, c)
		}
	}
	return ranked
}

// squash lowercases and drops separators so "The.Show.S01" matches "the show"
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
