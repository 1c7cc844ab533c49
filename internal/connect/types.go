package connect

import "github.com/uwillc/backroom/internal/directory"

// Target identifies the recipient of a newly sent request.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SendResult is the outcome of Send.
type SendResult struct {
	Request directory.ConnectionRequest `json:"request"`
	Target  Target                      `json:"target"`
}

// Party is the public view of a profile attached to a request listing.
type Party struct {
	ID     string   `json:"id"`
	Name   string   `json:"name,omitempty"`
	Role   string   `json:"role,omitempty"`
	Offers []string `json:"offers,omitempty"`
	Seeks  []string `json:"seeks,omitempty"`
}

// IncomingRequest is a pending request together with its sender. When the
// sender's profile could not be loaded, From carries only the id and
// Unresolved explains why.
type IncomingRequest struct {
	Request    directory.ConnectionRequest `json:"request"`
	From       Party                       `json:"from"`
	Unresolved string                      `json:"unresolved,omitempty"`
}

// SentRequest is an outgoing request together with its target.
type SentRequest struct {
	Request    directory.ConnectionRequest `json:"request"`
	To         Party                       `json:"to"`
	Unresolved string                      `json:"unresolved,omitempty"`
}

// Summary counts requests by status.
type Summary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Declined int `json:"declined"`
}

func (s *Summary) add(status directory.Status) {
	s.Total++
	switch status {
	case directory.StatusPending:
		s.Pending++
	case directory.StatusAccepted:
		s.Accepted++
	case directory.StatusDeclined:
		s.Declined++
	}
}

// SentRequests is the outcome of CheckSent.
type SentRequests struct {
	Requests []SentRequest `json:"requests"`
	Summary  Summary       `json:"summary"`
}

// Response is the outcome of Respond.
type Response struct {
	Request     directory.ConnectionRequest `json:"request"`
	EmailShared bool                        `json:"email_shared"`
}
