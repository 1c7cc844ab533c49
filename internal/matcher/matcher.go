// Package matcher ranks directory profiles against a free-text query using
// case-insensitive substring containment.
package matcher

import (
	"cmp"
	"slices"
	"strings"

	"github.com/uwillc/backroom/internal/directory"
)

// Per-entry weights. Every matching entry in a category counts.
const (
	WeightOffer    = 3
	WeightSeek     = 2
	WeightSkill    = 2
	WeightIndustry = 1
	WeightRole     = 1
)

// Match is a profile that scored above zero for a query.
type Match struct {
	Profile directory.Profile `json:"profile"`
	Score   int               `json:"score"`
	Reasons []string          `json:"reasons"`
}

// Search scores every profile against query and returns those with a
// positive score, highest first. Profiles with equal scores keep their input
// order. An empty or all-whitespace query yields no matches.
func Search(query string, profiles []directory.Profile) []Match {
	if strings.TrimSpace(query) == "" || len(profiles) == 0 {
		return nil
	}
	q := strings.ToLower(query)

	var matches []Match
	for _, p := range profiles {
		if m, ok := score(q, p); ok {
			matches = append(matches, m)
		}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return matches
}

func score(q string, p directory.Profile) (Match, bool) {
	m := Match{Profile: p}

	hit := func(entries []string, weight int, label string) {
		for _, e := range entries {
			if contains(e, q) {
				m.Score += weight
				m.Reasons = append(m.Reasons, label+": "+e)
			}
		}
	}
	hit(p.Offers, WeightOffer, "Offers")
	hit(p.Seeks, WeightSeek, "Seeks")
	hit(p.Skills, WeightSkill, "Skill")
	hit(p.Industry, WeightIndustry, "Industry")

	if contains(p.Role, q) {
		m.Score += WeightRole
		m.Reasons = append(m.Reasons, "Role match")
	}

	return m, m.Score > 0
}

// contains expects q to be lowercased already.
func contains(field, q string) bool {
	return strings.Contains(strings.ToLower(field), q)
}

// Top returns at most n matches. n <= 0 returns all of them.
func Top(matches []Match, n int) []Match {
	if n <= 0 || len(matches) <= n {
		return matches
	}
	return matches[:n]
}
