// Package connect implements the consent handshake between directory
// profiles. A request moves pending -> accepted | declined exactly once, and
// the recipient's email is revealed only when they accept and opt in.
package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/storage"
)

// ProfileStore is the identity lookup the workflow needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (directory.Profile, error)
}

// RequestStore persists connection requests. InsertRequest must reject a
// second pending request for the same ordered pair with storage.ErrConflict,
// and ResolveRequest must only succeed while the stored status is pending.
type RequestStore interface {
	InsertRequest(ctx context.Context, r directory.ConnectionRequest) (directory.ConnectionRequest, error)
	GetRequest(ctx context.Context, id string) (directory.ConnectionRequest, error)
	ResolveRequest(ctx context.Context, id string, res directory.Resolution) (directory.ConnectionRequest, error)
	ListRequests(ctx context.Context, f directory.RequestFilter) ([]directory.ConnectionRequest, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// enrichLimit bounds concurrent profile lookups while enriching a listing.
const enrichLimit = 8

// Workflow runs connection requests against a profile and a request store.
type Workflow struct {
	profiles ProfileStore
	requests RequestStore
	clock    Clock
}

// NewWorkflow creates a Workflow using the wall clock.
func NewWorkflow(profiles ProfileStore, requests RequestStore) *Workflow {
	return NewWorkflowWithClock(profiles, requests, realClock{})
}

// NewWorkflowWithClock creates a Workflow with a custom clock (for testing).
func NewWorkflowWithClock(profiles ProfileStore, requests RequestStore, clock Clock) *Workflow {
	return &Workflow{profiles: profiles, requests: requests, clock: clock}
}

// Send creates a pending request from fromID to toID.
func (w *Workflow) Send(ctx context.Context, fromID, toID, message, reason string) (SendResult, error) {
	if fromID == toID {
		return SendResult{}, fmt.Errorf("%w: cannot send a connection request to yourself", directory.ErrInvalidInput)
	}
	if _, err := w.profiles.GetProfile(ctx, fromID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SendResult{}, fmt.Errorf("%w: profile %q does not exist, register first", directory.ErrNotFound, fromID)
		}
		return SendResult{}, unavailable("looking up sender", err)
	}
	target, err := w.profiles.GetProfile(ctx, toID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SendResult{}, fmt.Errorf("%w: user not found: %q", directory.ErrNotFound, toID)
		}
		return SendResult{}, unavailable("looking up target", err)
	}

	r, err := w.requests.InsertRequest(ctx, directory.ConnectionRequest{
		FromUser:      fromID,
		ToUser:        toID,
		Message:       message,
		Reason:        reason,
		Status:        directory.StatusPending,
		ContactShared: map[string]string{},
		CreatedAt:     w.clock.Now().UTC(),
	})
	switch {
	case errors.Is(err, storage.ErrConflict):
		return SendResult{}, fmt.Errorf("%w: you already have a pending request to %s, wait for their response", directory.ErrConflict, target.Name)
	case errors.Is(err, storage.ErrNotFound):
		return SendResult{}, fmt.Errorf("%w: user not found: %q", directory.ErrNotFound, toID)
	case err != nil:
		return SendResult{}, unavailable("storing request", err)
	}

	slog.Info("connection request sent", "id", r.ID, "from", fromID, "to", toID)
	return SendResult{Request: r, Target: Target{ID: target.ID, Name: target.Name}}, nil
}

// CheckIncoming lists pending requests addressed to userID, oldest first,
// each enriched with the sender's public profile fields.
func (w *Workflow) CheckIncoming(ctx context.Context, userID string) ([]IncomingRequest, error) {
	reqs, err := w.requests.ListRequests(ctx, directory.RequestFilter{ToUser: userID, Status: directory.StatusPending})
	if err != nil {
		return nil, unavailable("listing incoming requests", err)
	}

	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.FromUser
	}
	found := w.enrich(ctx, ids)

	incoming := make([]IncomingRequest, len(reqs))
	for i, r := range reqs {
		party, unresolved := found.party(r.FromUser)
		incoming[i] = IncomingRequest{Request: r, From: party, Unresolved: unresolved}
	}
	return incoming, nil
}

// Respond accepts or declines a pending request. On accept with shareEmail,
// the responder's email is copied into the request's shared contact details
// when it is non-empty.
func (w *Workflow) Respond(ctx context.Context, requestID string, accept bool, responseMessage string, shareEmail bool) (Response, error) {
	r, err := w.requests.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Response{}, fmt.Errorf("%w: request %s", directory.ErrNotFound, requestID)
		}
		return Response{}, unavailable("looking up request", err)
	}
	if r.Status != directory.StatusPending {
		return Response{}, alreadyResolved(r)
	}

	res := directory.Resolution{
		Status:          directory.StatusDeclined,
		ResponseMessage: responseMessage,
		ContactShared:   map[string]string{},
		RespondedAt:     w.clock.Now().UTC(),
	}
	if accept {
		res.Status = directory.StatusAccepted
		if shareEmail {
			responder, err := w.profiles.GetProfile(ctx, r.ToUser)
			switch {
			case err == nil && responder.Email != "":
				res.ContactShared["email"] = responder.Email
			case err != nil && !errors.Is(err, storage.ErrNotFound):
				return Response{}, unavailable("looking up responder", err)
			}
		}
	}

	updated, err := w.requests.ResolveRequest(ctx, requestID, res)
	switch {
	case errors.Is(err, storage.ErrConflict):
		return Response{}, alreadyResolved(updated)
	case errors.Is(err, storage.ErrNotFound):
		return Response{}, fmt.Errorf("%w: request %s", directory.ErrNotFound, requestID)
	case err != nil:
		return Response{}, unavailable("resolving request", err)
	}

	_, shared := updated.ContactShared["email"]
	slog.Info("connection request resolved", "id", requestID, "status", updated.Status, "email_shared", shared)
	return Response{Request: updated, EmailShared: shared}, nil
}

// CheckSent lists every request sent by userID regardless of status, with
// the target's name and role and counts per status.
func (w *Workflow) CheckSent(ctx context.Context, userID string) (SentRequests, error) {
	reqs, err := w.requests.ListRequests(ctx, directory.RequestFilter{FromUser: userID})
	if err != nil {
		return SentRequests{}, unavailable("listing sent requests", err)
	}

	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ToUser
	}
	found := w.enrich(ctx, ids)

	out := SentRequests{Requests: make([]SentRequest, len(reqs))}
	for i, r := range reqs {
		party, unresolved := found.party(r.ToUser)
		party.Offers, party.Seeks = nil, nil
		out.Requests[i] = SentRequest{Request: r, To: party, Unresolved: unresolved}
		out.Summary.add(r.Status)
	}
	return out, nil
}

func alreadyResolved(r directory.ConnectionRequest) error {
	return fmt.Errorf("%w: request already %s", directory.ErrConflict, r.Status)
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", directory.ErrUnavailable, what, err)
}
