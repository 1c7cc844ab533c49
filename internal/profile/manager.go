// Package profile is the directory service: registration, partial updates and
// free-text or category search over the profile store.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/matcher"
	"github.com/uwillc/backroom/internal/storage"
)

// Store defines the storage operations the Manager needs.
// Implemented by storage.Store and dynamo.Store.
type Store interface {
	InsertProfile(ctx context.Context, p directory.Profile) (directory.Profile, error)
	GetProfile(ctx context.Context, id string) (directory.Profile, error)
	ListProfiles(ctx context.Context) ([]directory.Profile, error)
	UpdateProfile(ctx context.Context, id string, u directory.ProfileUpdate) (directory.Profile, error)
}

// Manager serves directory operations. It holds no state of its own: every
// call, including every search, reads through to the store.
type Manager struct {
	store Store
}

// NewManager creates a Manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// List returns every profile in registration order.
func (m *Manager) List(ctx context.Context) ([]directory.Profile, error) {
	profiles, err := m.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing profiles: %w", directory.ErrUnavailable, err)
	}
	return profiles, nil
}

// Get returns one profile by id.
func (m *Manager) Get(ctx context.Context, id string) (directory.Profile, error) {
	p, err := m.store.GetProfile(ctx, id)
	if err != nil {
		return directory.Profile{}, storeError(err, "profile "+id)
	}
	return p, nil
}

// Register derives the id from p.Name and stores the profile. Any id already
// set on p is ignored.
func (m *Manager) Register(ctx context.Context, p directory.Profile) (directory.Profile, error) {
	id, err := directory.ProfileID(p.Name)
	if err != nil {
		return directory.Profile{}, err
	}
	p.ID = id
	p.Name = strings.TrimSpace(p.Name)
	return m.insert(ctx, p)
}

func (m *Manager) insert(ctx context.Context, p directory.Profile) (directory.Profile, error) {
	stored, err := m.store.InsertProfile(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return directory.Profile{}, fmt.Errorf("%w: profile %q already exists", directory.ErrConflict, p.ID)
		}
		return directory.Profile{}, storeError(err, "profile "+p.ID)
	}
	slog.Info("profile registered", "id", stored.ID)
	return stored, nil
}

// Update applies u to the profile with the given id. Only supplied fields
// change; an update with no fields is rejected.
func (m *Manager) Update(ctx context.Context, id string, u directory.ProfileUpdate) (directory.Profile, error) {
	if u.Empty() {
		return directory.Profile{}, fmt.Errorf("%w: no fields to update", directory.ErrInvalidInput)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return directory.Profile{}, fmt.Errorf("%w: name cannot be empty", directory.ErrInvalidInput)
	}

	p, err := m.store.UpdateProfile(ctx, id, u)
	if err != nil {
		return directory.Profile{}, storeError(err, "profile "+id)
	}
	slog.Info("profile updated", "id", id, "fields", u.Fields())
	return p, nil
}

// Search ranks every stored profile against query. The full ranked set is
// returned; truncation is up to the caller.
func (m *Manager) Search(ctx context.Context, query string) ([]matcher.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is empty", directory.ErrInvalidInput)
	}
	profiles, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := matcher.Search(query, profiles)
	slog.Debug("search", "query", query, "profiles", len(profiles), "matches", len(matches))
	return matches, nil
}

// SearchCategory returns profiles with at least one entry in the named
// category containing value, in registration order.
func (m *Manager) SearchCategory(ctx context.Context, category, value string) ([]directory.Profile, error) {
	c, err := matcher.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: search value is empty", directory.ErrInvalidInput)
	}
	profiles, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return matcher.SearchCategory(c, value, profiles), nil
}

// storeError maps storage sentinels to directory error kinds. Anything that
// is not a business outcome is reported as unavailable.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", directory.ErrNotFound, what)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %s", directory.ErrConflict, what)
	default:
		return fmt.Errorf("%w: %s: %w", directory.ErrUnavailable, what, err)
	}
}

// maxSummaryChars caps Summarize output so agent tool results stay compact.
const maxSummaryChars = 600

// Summarize returns a one-paragraph plain-text description of p.
func Summarize(p directory.Profile) string {
	var parts []string

	head := p.Name
	if p.Role != "" {
		head += ", " + p.Role
	}
	if p.Location != "" {
		head += " (" + p.Location + ")"
	}
	parts = append(parts, head+".")

	list := func(label string, entries []string) {
		if len(entries) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s.", label, strings.Join(entries, ", ")))
		}
	}
	list("Industry", p.Industry)
	list("Skills", p.Skills)
	list("Offers", p.Offers)
	list("Seeks", p.Seeks)

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}
