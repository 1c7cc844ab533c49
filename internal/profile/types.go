package profile

import "github.com/uwillc/backroom/internal/directory"

// File is the on-disk profile format read by LoadDir. It accepts the flat
// field layout of directory.Profile as well as the older nested layout where
// skills live under "capital" and the LinkedIn URL under "links".
type File struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Role              string   `json:"role"`
	Location          string   `json:"location"`
	Bio               string   `json:"bio"`
	Tags              []string `json:"tags"`
	Skills            []string `json:"skills"`
	Offers            []string `json:"offers"`
	Seeks             []string `json:"seeks"`
	Industry          []string `json:"industry"`
	OfferFree         string   `json:"offer_free"`
	OfferCondition    string   `json:"offer_condition"`
	Email             string   `json:"email"`
	LinkedInURL       string   `json:"linkedin_url"`
	PreferredContact  string   `json:"preferred_contact"`
	AssistantEndpoint string   `json:"assistant_endpoint"`

	Capital struct {
		Skills []string `json:"skills"`
	} `json:"capital"`
	Links struct {
		LinkedIn string `json:"linkedin"`
	} `json:"links"`
}

// Profile converts f to a directory profile. Flat fields win over their
// nested equivalents when both are present.
func (f File) Profile() directory.Profile {
	p := directory.Profile{
		ID:                f.ID,
		Name:              f.Name,
		Role:              f.Role,
		Location:          f.Location,
		Bio:               f.Bio,
		Tags:              f.Tags,
		Skills:            f.Skills,
		Offers:            f.Offers,
		Seeks:             f.Seeks,
		Industry:          f.Industry,
		OfferFree:         f.OfferFree,
		OfferCondition:    f.OfferCondition,
		Email:             f.Email,
		LinkedInURL:       f.LinkedInURL,
		PreferredContact:  f.PreferredContact,
		AssistantEndpoint: f.AssistantEndpoint,
	}
	if len(p.Skills) == 0 {
		p.Skills = f.Capital.Skills
	}
	if p.LinkedInURL == "" {
		p.LinkedInURL = f.Links.LinkedIn
	}
	p.Normalize()
	return p
}
