package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/storage"
)

var ctx = context.Background()

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewManager(s)
}

// --- Failing store ---

type brokenStore struct{ err error }

func (b brokenStore) InsertProfile(context.Context, directory.Profile) (directory.Profile, error) {
	return directory.Profile{}, b.err
}

func (b brokenStore) GetProfile(context.Context, string) (directory.Profile, error) {
	return directory.Profile{}, b.err
}

func (b brokenStore) ListProfiles(context.Context) ([]directory.Profile, error) {
	return nil, b.err
}

func (b brokenStore) UpdateProfile(context.Context, string, directory.ProfileUpdate) (directory.Profile, error) {
	return directory.Profile{}, b.err
}

func strPtr(s string) *string { return &s }

// --- Tests ---

func TestRegister_DerivesID(t *testing.T) {
	m := newTestManager(t)

	p, err := m.Register(ctx, directory.Profile{ID: "ignored", Name: "  Mary-Jane Smith "})
	require.NoError(t, err)
	assert.Equal(t, "mary_jane_smith", p.ID)

	got, err := m.Get(ctx, "mary_jane_smith")
	require.NoError(t, err)
	assert.Equal(t, "Mary-Jane Smith", got.Name)
}

func TestRegister_IDCollision(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Register(ctx, directory.Profile{Name: "Jo Doe"})
	require.NoError(t, err)

	_, err = m.Register(ctx, directory.Profile{Name: "jo_doe"})
	assert.ErrorIs(t, err, directory.ErrConflict)
}

func TestRegister_EmptyName(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Register(ctx, directory.Profile{Name: "   "})
	assert.ErrorIs(t, err, directory.ErrInvalidInput)
}

func TestGet_NotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Get(ctx, "ghost")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestUpdate_RoleOnly(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(ctx, directory.Profile{
		Name: "Jo Doe", Role: "Engineer", Skills: []string{"go", "sql"}, Email: "jo@example.com",
	})
	require.NoError(t, err)

	p, err := m.Update(ctx, "jo_doe", directory.ProfileUpdate{Role: strPtr("CTO")})
	require.NoError(t, err)
	assert.Equal(t, "CTO", p.Role)

	got, err := m.Get(ctx, "jo_doe")
	require.NoError(t, err)
	assert.Equal(t, "CTO", got.Role)
	assert.Equal(t, []string{"go", "sql"}, got.Skills)
	assert.Equal(t, "jo@example.com", got.Email)
	assert.Equal(t, "Jo Doe", got.Name)
}

func TestUpdate_ExplicitEmptyClears(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(ctx, directory.Profile{Name: "Jo", Offers: []string{"mentoring"}, Bio: "hi"})
	require.NoError(t, err)

	empty := []string{}
	p, err := m.Update(ctx, "jo", directory.ProfileUpdate{Offers: &empty, Bio: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, p.Offers)
	assert.NotNil(t, p.Offers)
	assert.Equal(t, "", p.Bio)
}

func TestUpdate_Invalid(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(ctx, directory.Profile{Name: "Jo"})
	require.NoError(t, err)

	_, err = m.Update(ctx, "jo", directory.ProfileUpdate{})
	assert.ErrorIs(t, err, directory.ErrInvalidInput)

	_, err = m.Update(ctx, "jo", directory.ProfileUpdate{Name: strPtr(" ")})
	assert.ErrorIs(t, err, directory.ErrInvalidInput)

	_, err = m.Update(ctx, "ghost", directory.ProfileUpdate{Role: strPtr("x")})
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestSearch_EndToEnd(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(ctx, directory.Profile{Name: "b", Skills: []string{"python"}})
	require.NoError(t, err)
	_, err = m.Register(ctx, directory.Profile{Name: "a", Offers: []string{"python mentoring", "Python reviews"}})
	require.NoError(t, err)
	_, err = m.Register(ctx, directory.Profile{Name: "c", Offers: []string{"design"}})
	require.NoError(t, err)

	matches, err := m.Search(ctx, "Python")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Profile.ID)
	assert.Equal(t, 6, matches[0].Score)
	assert.Equal(t, "b", matches[1].Profile.ID)
	assert.Equal(t, 2, matches[1].Score)
}

func TestSearch_EmptyQuery(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Search(ctx, "  \t")
	assert.ErrorIs(t, err, directory.ErrInvalidInput)
}

func TestSearchCategory(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(ctx, directory.Profile{Name: "a", Industry: []string{"FinTech"}})
	require.NoError(t, err)
	_, err = m.Register(ctx, directory.Profile{Name: "b", Industry: []string{"health"}})
	require.NoError(t, err)

	got, err := m.SearchCategory(ctx, "industry", "fintech")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	_, err = m.SearchCategory(ctx, "hobbies", "x")
	assert.ErrorIs(t, err, directory.ErrInvalidInput)

	_, err = m.SearchCategory(ctx, "skills", " ")
	assert.ErrorIs(t, err, directory.ErrInvalidInput)
}

func TestBackendFailureIsUnavailable(t *testing.T) {
	boom := errors.New("disk I/O error")
	m := NewManager(brokenStore{err: boom})

	_, err := m.List(ctx)
	assert.ErrorIs(t, err, directory.ErrUnavailable)
	assert.ErrorIs(t, err, boom)

	_, err = m.Get(ctx, "x")
	assert.ErrorIs(t, err, directory.ErrUnavailable)
	assert.NotErrorIs(t, err, directory.ErrNotFound)

	_, err = m.Register(ctx, directory.Profile{Name: "x"})
	assert.ErrorIs(t, err, directory.ErrUnavailable)

	_, err = m.Search(ctx, "go")
	assert.ErrorIs(t, err, directory.ErrUnavailable)
}

func TestSummarize(t *testing.T) {
	s := Summarize(directory.Profile{
		Name: "Anna", Role: "Designer", Location: "Berlin",
		Skills: []string{"figma", "ux"}, Offers: []string{"portfolio review"},
	})
	assert.Equal(t, "Anna, Designer (Berlin). Skills: figma, ux. Offers: portfolio review.", s)
}

func TestSummarize_Budget(t *testing.T) {
	long := make([]string, 200)
	for i := range long {
		long[i] = "skill"
	}
	s := Summarize(directory.Profile{Name: "X", Skills: long})
	assert.LessOrEqual(t, len(s), maxSummaryChars)
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadDir_FormatsAndBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a-flat.json", `{"name":"Flat One","skills":["go"],"linkedin_url":"https://l/flat"}`)
	writeFile(t, dir, "b-nested.json", `{"id":"nested","name":"Nested","capital":{"skills":["rust"]},"links":{"linkedin":"https://l/n"}}`)
	writeFile(t, dir, "c-broken.json", `{"name":`)
	writeFile(t, dir, "notes.txt", `ignored`)

	profiles, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "Flat One", profiles[0].Name)
	assert.Equal(t, []string{"go"}, profiles[0].Skills)
	assert.Equal(t, "https://l/flat", profiles[0].LinkedInURL)

	assert.Equal(t, "nested", profiles[1].ID)
	assert.Equal(t, []string{"rust"}, profiles[1].Skills)
	assert.Equal(t, "https://l/n", profiles[1].LinkedInURL)
	assert.NotNil(t, profiles[1].Offers)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(ctx, directory.Profile{Name: "Existing"})
	require.NoError(t, err)

	res, err := m.Import(ctx, []directory.Profile{
		{Name: "New Person"},
		{ID: "custom_id", Name: "Custom"},
		{Name: "existing"},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"new_person", "custom_id"}, res.Imported)
	assert.Equal(t, []string{"existing"}, res.Duplicates)
	assert.Equal(t, 1, res.Skipped)

	_, err = m.Get(ctx, "custom_id")
	assert.NoError(t, err)
}
