package directory

// ProfileUpdate is a partial profile update. A nil field leaves the stored
// value untouched; a non-nil field replaces it, so an explicit empty string or
// empty slice clears the field. The id is never updatable. Decoding JSON
// into a ProfileUpdate marks exactly the keys present in the document.
type ProfileUpdate struct {
	Name     *string   `json:"name,omitempty"`
	Role     *string   `json:"role,omitempty"`
	Location *string   `json:"location,omitempty"`
	Bio      *string   `json:"bio,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Skills   *[]string `json:"skills,omitempty"`
	Offers   *[]string `json:"offers,omitempty"`
	Seeks    *[]string `json:"seeks,omitempty"`
	Industry *[]string `json:"industry,omitempty"`

	OfferFree         *string `json:"offer_free,omitempty"`
	OfferCondition    *string `json:"offer_condition,omitempty"`
	Email             *string `json:"email,omitempty"`
	LinkedInURL       *string `json:"linkedin_url,omitempty"`
	PreferredContact  *string `json:"preferred_contact,omitempty"`
	AssistantEndpoint *string `json:"assistant_endpoint,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u ProfileUpdate) Empty() bool {
	return len(u.Fields()) == 0
}

// Fields returns the JSON names of the supplied fields, in declaration order.
func (u ProfileUpdate) Fields() []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(u.Name != nil, "name")
	add(u.Role != nil, "role")
	add(u.Location != nil, "location")
	add(u.Bio != nil, "bio")
	add(u.Tags != nil, "tags")
	add(u.Skills != nil, "skills")
	add(u.Offers != nil, "offers")
	add(u.Seeks != nil, "seeks")
	add(u.Industry != nil, "industry")
	add(u.OfferFree != nil, "offer_free")
	add(u.OfferCondition != nil, "offer_condition")
	add(u.Email != nil, "email")
	add(u.LinkedInURL != nil, "linkedin_url")
	add(u.PreferredContact != nil, "preferred_contact")
	add(u.AssistantEndpoint != nil, "assistant_endpoint")
	return names
}

// Apply returns p with the supplied fields replaced.
func (u ProfileUpdate) Apply(p Profile) Profile {
	setString(&p.Name, u.Name)
	setString(&p.Role, u.Role)
	setString(&p.Location, u.Location)
	setString(&p.Bio, u.Bio)
	setSlice(&p.Tags, u.Tags)
	setSlice(&p.Skills, u.Skills)
	setSlice(&p.Offers, u.Offers)
	setSlice(&p.Seeks, u.Seeks)
	setSlice(&p.Industry, u.Industry)
	setString(&p.OfferFree, u.OfferFree)
	setString(&p.OfferCondition, u.OfferCondition)
	setString(&p.Email, u.Email)
	setString(&p.LinkedInURL, u.LinkedInURL)
	setString(&p.PreferredContact, u.PreferredContact)
	setString(&p.AssistantEndpoint, u.AssistantEndpoint)
	p.Normalize()
	return p
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setSlice(dst *[]string, v *[]string) {
	if v != nil {
		*dst = append([]string{}, (*v)...)
	}
}
