package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/uwillc/backroom/internal/directory"
)

func seedPair(t *testing.T, s *Store) {
	t.Helper()
	insertProfile(t, s, "alice")
	insertProfile(t, s, "bob")
}

func TestInsertAndGetRequest(t *testing.T) {
	s := openTestStore(t)
	seedPair(t, s)

	r, err := s.InsertRequest(ctx, directory.ConnectionRequest{
		FromUser: "alice", ToUser: "bob", Message: "hi", Reason: "python help",
	})
	if err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	if r.ID == "" {
		t.Fatal("InsertRequest should assign an id")
	}
	if r.Status != directory.StatusPending {
		t.Errorf("Status = %q, want pending", r.Status)
	}

	got, err := s.GetRequest(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.FromUser != "alice" || got.ToUser != "bob" || got.Reason != "python help" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.RespondedAt != nil {
		t.Errorf("RespondedAt = %v, want nil", got.RespondedAt)
	}
	if got.ContactShared == nil || len(got.ContactShared) != 0 {
		t.Errorf("ContactShared = %v, want empty map", got.ContactShared)
	}
}

func TestInsertRequest_PendingPairUnique(t *testing.T) {
	s := openTestStore(t)
	seedPair(t, s)

	first, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: "bob"})
	if err != nil {
		t.Fatalf("first InsertRequest: %v", err)
	}

	_, err = s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: "bob"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second InsertRequest error = %v, want ErrConflict", err)
	}

	// The reverse direction is a different ordered pair.
	if _, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "bob", ToUser: "alice"}); err != nil {
		t.Fatalf("reverse InsertRequest: %v", err)
	}

	if _, err := s.ResolveRequest(ctx, first.ID, directory.Resolution{
		Status: directory.StatusDeclined, RespondedAt: time.Now(),
	}); err != nil {
		t.Fatalf("ResolveRequest: %v", err)
	}

	if _, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: "bob"}); err != nil {
		t.Fatalf("InsertRequest after resolve: %v", err)
	}
}

func TestInsertRequest_UnknownProfile(t *testing.T) {
	s := openTestStore(t)
	insertProfile(t, s, "alice")

	_, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveRequest(t *testing.T) {
	s := openTestStore(t)
	seedPair(t, s)

	r, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: "bob"})
	if err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	got, err := s.ResolveRequest(ctx, r.ID, directory.Resolution{
		Status:          directory.StatusAccepted,
		ResponseMessage: "happy to help",
		ContactShared:   map[string]string{"email": "bob@example.com"},
		RespondedAt:     at,
	})
	if err != nil {
		t.Fatalf("ResolveRequest: %v", err)
	}
	if got.Status != directory.StatusAccepted {
		t.Errorf("Status = %q, want accepted", got.Status)
	}
	if got.ContactShared["email"] != "bob@example.com" {
		t.Errorf("ContactShared = %v", got.ContactShared)
	}
	if got.RespondedAt == nil || !got.RespondedAt.Equal(at) {
		t.Errorf("RespondedAt = %v, want %v", got.RespondedAt, at)
	}

	// A second resolution must fail and leave the record untouched.
	again, err := s.ResolveRequest(ctx, r.ID, directory.Resolution{
		Status: directory.StatusDeclined, RespondedAt: time.Now(),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second ResolveRequest error = %v, want ErrConflict", err)
	}
	if again.Status != directory.StatusAccepted || again.ContactShared["email"] != "bob@example.com" {
		t.Errorf("record changed after rejected resolution: %+v", again)
	}
}

func TestResolveRequest_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ResolveRequest(ctx, "missing", directory.Resolution{Status: directory.StatusAccepted, RespondedAt: time.Now()})
	if err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListRequests_Filters(t *testing.T) {
	s := openTestStore(t)
	seedPair(t, s)
	insertProfile(t, s, "carol")

	ab, _ := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: "bob"})
	if _, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "carol", ToUser: "bob"}); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	if _, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: "carol"}); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	if _, err := s.ResolveRequest(ctx, ab.ID, directory.Resolution{Status: directory.StatusAccepted, RespondedAt: time.Now()}); err != nil {
		t.Fatalf("ResolveRequest: %v", err)
	}

	toBob, err := s.ListRequests(ctx, directory.RequestFilter{ToUser: "bob", Status: directory.StatusPending})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(toBob) != 1 || toBob[0].FromUser != "carol" {
		t.Errorf("pending to bob = %+v, want one from carol", toBob)
	}

	fromAlice, err := s.ListRequests(ctx, directory.RequestFilter{FromUser: "alice"})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(fromAlice) != 2 {
		t.Fatalf("from alice = %d requests, want 2", len(fromAlice))
	}
	if fromAlice[0].ToUser != "bob" || fromAlice[1].ToUser != "carol" {
		t.Errorf("order = [%s %s], want [bob carol]", fromAlice[0].ToUser, fromAlice[1].ToUser)
	}

	none, err := s.ListRequests(ctx, directory.RequestFilter{ToUser: "nobody"})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", none)
	}
}

func TestListRequests_SubSecondOldestFirst(t *testing.T) {
	s := openTestStore(t)
	seedPair(t, s)
	insertProfile(t, s, "carol")
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

	// Inserted newest first so rowid order disagrees with time order.
	for _, r := range []struct {
		to     string
		offset time.Duration
	}{
		{"carol", 520 * time.Millisecond},
		{"bob", 500 * time.Millisecond},
	} {
		if _, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "alice", ToUser: r.to, CreatedAt: base.Add(r.offset)}); err != nil {
			t.Fatalf("InsertRequest(%s): %v", r.to, err)
		}
	}
	if _, err := s.InsertRequest(ctx, directory.ConnectionRequest{FromUser: "bob", ToUser: "alice", CreatedAt: base}); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}

	got, err := s.ListRequests(ctx, directory.RequestFilter{})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d requests, want 3", len(got))
	}
	if got[0].FromUser != "bob" || got[1].ToUser != "bob" || got[2].ToUser != "carol" {
		t.Errorf("order = %s->%s, %s->%s, %s->%s; want oldest first",
			got[0].FromUser, got[0].ToUser, got[1].FromUser, got[1].ToUser, got[2].FromUser, got[2].ToUser)
	}
}
