package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uwillc/backroom/internal/directory"
)

func ids(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Profile.ID
	}
	return out
}

func TestSearch_EndToEnd(t *testing.T) {
	profiles := []directory.Profile{
		{ID: "a", Offers: []string{"python tutoring", "python tutoring"}, Skills: []string{}},
		{ID: "b", Skills: []string{"python"}, Offers: []string{}},
	}

	got := Search("python", profiles)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, ids(got))
	assert.Equal(t, 6, got[0].Score)
	assert.Equal(t, 2, got[1].Score)
	assert.Equal(t, []string{"Offers: python tutoring", "Offers: python tutoring"}, got[0].Reasons)
	assert.Equal(t, []string{"Skill: python"}, got[1].Reasons)
}

func TestSearch_AdditiveAcrossCategories(t *testing.T) {
	p := directory.Profile{ID: "x", Offers: []string{"Go mentoring"}, Skills: []string{"go"}}

	got := Search("go", []directory.Profile{p})

	require.Len(t, got, 1)
	assert.Equal(t, WeightOffer+WeightSkill, got[0].Score)
}

func TestSearch_AllCategoriesAndReasonOrder(t *testing.T) {
	p := directory.Profile{
		ID:       "full",
		Role:     "Marketing lead",
		Offers:   []string{"marketing audit"},
		Seeks:    []string{"marketing co-founder"},
		Skills:   []string{"Marketing"},
		Industry: []string{"marketing tech"},
	}

	got := Search("MARKETING", []directory.Profile{p})

	require.Len(t, got, 1)
	assert.Equal(t, 3+2+2+1+1, got[0].Score)
	assert.Equal(t, []string{
		"Offers: marketing audit",
		"Seeks: marketing co-founder",
		"Skill: Marketing",
		"Industry: marketing tech",
		"Role match",
	}, got[0].Reasons)
}

func TestSearch_ExcludesZeroScores(t *testing.T) {
	profiles := []directory.Profile{
		{ID: "none", Offers: []string{"design"}},
		{ID: "hit", Seeks: []string{"rust help"}},
	}

	got := Search("rust", profiles)

	assert.Equal(t, []string{"hit"}, ids(got))
	for _, m := range got {
		assert.Positive(t, m.Score)
	}
}

func TestSearch_StableTieBreak(t *testing.T) {
	profiles := []directory.Profile{
		{ID: "low", Industry: []string{"fintech"}},
		{ID: "first", Skills: []string{"fintech apis"}},
		{ID: "second", Seeks: []string{"fintech partner"}},
		{ID: "third", Skills: []string{"FinTech"}},
	}

	got := Search("fintech", profiles)

	assert.Equal(t, []string{"first", "second", "third", "low"}, ids(got))
}

func TestSearch_EmptyInputs(t *testing.T) {
	profiles := []directory.Profile{{ID: "a", Offers: []string{"anything"}}}

	assert.Empty(t, Search("", profiles))
	assert.Empty(t, Search("   ", profiles))
	assert.Empty(t, Search("python", nil))
}

func TestSearch_RoleCountsOnce(t *testing.T) {
	p := directory.Profile{ID: "r", Role: "data data data"}

	got := Search("data", []directory.Profile{p})

	require.Len(t, got, 1)
	assert.Equal(t, WeightRole, got[0].Score)
}

func TestSearch_AbsentFields(t *testing.T) {
	got := Search("x", []directory.Profile{{ID: "empty"}})
	assert.Empty(t, got)
}

func TestTop(t *testing.T) {
	m := []Match{{Score: 3}, {Score: 2}, {Score: 1}}
	assert.Len(t, Top(m, 2), 2)
	assert.Len(t, Top(m, 5), 3)
	assert.Len(t, Top(m, 0), 3)
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCategory(" Skills ")
	require.NoError(t, err)
	assert.Equal(t, Skills, got)

	_, err = ParseCategory("hobbies")
	require.ErrorIs(t, err, directory.ErrInvalidInput)
}

func TestSearchCategory(t *testing.T) {
	profiles := []directory.Profile{
		{ID: "a", Industry: []string{"E-commerce"}, Skills: []string{"python"}},
		{ID: "b", Seeks: []string{"co-founder"}},
		{ID: "c", Offers: []string{"Python workshops"}, Industry: []string{"education"}},
	}

	got := SearchCategory(Skills, "PYTHON", profiles)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	got = SearchCategory(Offering, "python", profiles)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)

	got = SearchCategory(Seeking, "founder", profiles)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	got = SearchCategory(Industry, "e", profiles)
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)

	assert.Empty(t, SearchCategory(Industry, "", profiles))
}
