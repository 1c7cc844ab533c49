// Package directory holds the records shared by the profile directory and the
// connection workflow, and the error kinds every operation reports.
package directory

import "time"

// Profile is a directory entry describing one party's offered and sought
// capabilities. Slice fields are never nil once a profile leaves a store.
type Profile struct {
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
	Email             string `json:"email,omitempty"`
	LinkedInURL       string `json:"linkedin_url,omitempty"`
	PreferredContact  string `json:"preferred_contact,omitempty"`
	AssistantEndpoint string `json:"assistant_endpoint,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize replaces nil slices with empty ones.
func (p *Profile) Normalize() {
	p.Tags = orEmpty(p.Tags)
	p.Skills = orEmpty(p.Skills)
	p.Offers = orEmpty(p.Offers)
	p.Seeks = orEmpty(p.Seeks)
	p.Industry = orEmpty(p.Industry)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Status is the state of a connection request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusDeclined
}

// ConnectionRequest is a consent handshake between two profiles. Contact
// details appear in ContactShared only after the recipient accepts and
// explicitly opts in.
type ConnectionRequest struct {
	ID              string            `json:"id"`
	FromUser        string            `json:"from_user"`
	ToUser          string            `json:"to_user"`
	Message         string            `json:"message"`
	Reason          string            `json:"reason"`
	Status          Status            `json:"status"`
	ResponseMessage string            `json:"response_message,omitempty"`
	ContactShared   map[string]string `json:"contact_shared"`
	CreatedAt       time.Time         `json:"created_at"`
	RespondedAt     *time.Time        `json:"responded_at,omitempty"`
}

// Resolution is the terminal state written to a pending request.
type Resolution struct {
	Status          Status
	ResponseMessage string
	ContactShared   map[string]string
	RespondedAt     time.Time
}

// RequestFilter selects connection requests. Empty fields match everything.
type RequestFilter struct {
	FromUser string
	ToUser   string
	Status   Status
}
