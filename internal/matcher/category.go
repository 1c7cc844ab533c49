package matcher

import (
	"fmt"
	"strings"

	"github.com/uwillc/backroom/internal/directory"
)

// Category is a profile field group that can be searched on its own.
type Category int

const (
	Industry Category = iota + 1
	Skills
	Seeking
	Offering
)

var categoryNames = map[Category]string{
	Industry: "industry",
	Skills:   "skills",
	Seeking:  "seeking",
	Offering: "offering",
}

// Categories lists every searchable category.
func Categories() []Category {
	return []Category{Industry, Skills, Seeking, Offering}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Entries returns the profile field the category searches.
func (c Category) Entries(p directory.Profile) []string {
	switch c {
	case Industry:
		return p.Industry
	case Skills:
		return p.Skills
	case Seeking:
		return p.Seeks
	case Offering:
		return p.Offers
	}
	return nil
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (Category, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for c, cn := range categoryNames {
		if cn == n {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown category %q (want one of industry, skills, seeking, offering)", directory.ErrInvalidInput, name)
}

// SearchCategory returns the profiles with at least one entry in category c
// containing value, in input order. No score is computed.
func SearchCategory(c Category, value string, profiles []directory.Profile) []directory.Profile {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.ToLower(value)

	var out []directory.Profile
	for _, p := range profiles {
		for _, e := range c.Entries(p) {
			if contains(e, v) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
