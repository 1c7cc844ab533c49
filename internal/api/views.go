package api

import (
	"time"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/matcher"
)

// Result limits for free-text search.
const (
	DefaultMaxResults = 5
	maxResultsCap     = 50
)

// ProfileSummary is the listing view of a profile.
type ProfileSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Industry []string `json:"industry"`
}

// ProfileList is returned by listProfiles.
type ProfileList struct {
	Count    int              `json:"count"`
	Profiles []ProfileSummary `json:"profiles"`
}

// SearchHit is one ranked match.
type SearchHit struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
	LinkedIn string   `json:"linkedin,omitempty"`
}

// SearchResult is returned by search. MatchesFound counts every match even
// when Results is truncated.
type SearchResult struct {
	Query        string      `json:"query"`
	MatchesFound int         `json:"matches_found"`
	Results      []SearchHit `json:"results"`
}

// CategoryHit is one category-search match.
type CategoryHit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// CategoryResult is returned by searchByCategory.
type CategoryResult struct {
	Category     string        `json:"category"`
	Value        string        `json:"value"`
	MatchesFound int           `json:"matches_found"`
	Results      []CategoryHit `json:"results"`
}

func clampLimit(limit, def int) int {
	if def <= 0 {
		def = DefaultMaxResults
	}
	if limit <= 0 {
		limit = def
	}
	return min(limit, maxResultsCap)
}

func newProfileList(profiles []directory.Profile) ProfileList {
	out := ProfileList{Count: len(profiles), Profiles: make([]ProfileSummary, len(profiles))}
	for i, p := range profiles {
		out.Profiles[i] = ProfileSummary{ID: p.ID, Name: p.Name, Role: p.Role, Industry: p.Industry}
	}
	return out
}

func newSearchResult(query string, matches []matcher.Match, limit int) SearchResult {
	top := matcher.Top(matches, limit)
	out := SearchResult{Query: query, MatchesFound: len(matches), Results: make([]SearchHit, len(top))}
	for i, m := range top {
		out.Results[i] = SearchHit{
			ID:       m.Profile.ID,
			Name:     m.Profile.Name,
			Role:     m.Profile.Role,
			Score:    m.Score,
			Reasons:  m.Reasons,
			LinkedIn: m.Profile.LinkedInURL,
		}
	}
	return out
}

func newCategoryResult(category, value string, profiles []directory.Profile) CategoryResult {
	out := CategoryResult{Category: category, Value: value, MatchesFound: len(profiles), Results: make([]CategoryHit, len(profiles))}
	for i, p := range profiles {
		out.Results[i] = CategoryHit{ID: p.ID, Name: p.Name, Role: p.Role, LinkedIn: p.LinkedInURL}
	}
	return out
}

// PublicProfile is the profile as other parties may see it. The email is
// withheld; it leaves the directory only through an accepted connection
// request whose recipient opted in to sharing it.
type PublicProfile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Location string   `json:"location,omitempty"`
	Bio      string   `json:"bio,omitempty"`
	Tags     []string `json:"tags"`
	Skills   []string `json:"skills"`
	Offers   []string `json:"offers"`
	Seeks    []string `json:"seeks"`
	Industry []string `json:"industry"`

	OfferFree         string `json:"offer_free,omitempty"`
	OfferCondition    string `json:"offer_condition,omitempty"`
	LinkedInURL       string `json:"linkedin_url,omitempty"`
	PreferredContact  string `json:"preferred_contact,omitempty"`
	AssistantEndpoint string `json:"assistant_endpoint,omitempty"`
	HasEmail          bool   `json:"has_email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPublicProfile(p directory.Profile) PublicProfile {
	return PublicProfile{
		ID:                p.ID,
		Name:              p.Name,
		Role:              p.Role,
		Location:          p.Location,
		Bio:               p.Bio,
		Tags:              p.Tags,
		Skills:            p.Skills,
		Offers:            p.Offers,
		Seeks:             p.Seeks,
		Industry:          p.Industry,
		OfferFree:         p.OfferFree,
		OfferCondition:    p.OfferCondition,
		LinkedInURL:       p.LinkedInURL,
		PreferredContact:  p.PreferredContact,
		AssistantEndpoint: p.AssistantEndpoint,
		HasEmail:          p.Email != "",
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
