package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uwillc/backroom/internal/directory"
)

const profileColumns = `id, name, role, location, bio, tags, skills, offers, seeks, industry,
	offer_free, offer_condition, email, linkedin_url, preferred_contact, assistant_endpoint,
	created_at, updated_at`

// InsertProfile stores a new profile. It returns ErrConflict when the id is
// already taken.
func (s *Store) InsertProfile(ctx context.Context, p directory.Profile) (directory.Profile, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.Normalize()

	fields, err := profileFields(p)
	if err != nil {
		return directory.Profile{}, err
	}
	args := append([]any{p.ID}, fields...)
	args = append(args, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	_, err = s.db.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if isUniqueViolation(err) {
		return directory.Profile{}, fmt.Errorf("profile %q: %w", p.ID, ErrConflict)
	}
	if err != nil {
		return directory.Profile{}, fmt.Errorf("inserting profile %q: %w", p.ID, err)
	}
	return p, nil
}

// GetProfile returns the profile with the given id, or ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, id string) (directory.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Profile{}, ErrNotFound
	}
	return p, err
}

// ListProfiles returns every profile in registration order.
func (s *Store) ListProfiles(ctx context.Context) ([]directory.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []directory.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// UpdateProfile applies a partial update inside a transaction and returns the
// stored result. It returns ErrNotFound when the id is absent.
func (s *Store) UpdateProfile(ctx context.Context, id string, u directory.ProfileUpdate) (directory.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return directory.Profile{}, fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanProfile(tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Profile{}, ErrNotFound
	}
	if err != nil {
		return directory.Profile{}, err
	}

	next := u.Apply(current)
	next.UpdatedAt = time.Now().UTC()

	fields, err := profileFields(next)
	if err != nil {
		return directory.Profile{}, err
	}
	args := append(fields, formatTime(next.UpdatedAt), id)
	_, err = tx.ExecContext(ctx, `UPDATE profiles SET
		name = ?, role = ?, location = ?, bio = ?, tags = ?, skills = ?, offers = ?, seeks = ?, industry = ?,
		offer_free = ?, offer_condition = ?, email = ?, linkedin_url = ?, preferred_contact = ?, assistant_endpoint = ?,
		updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return directory.Profile{}, fmt.Errorf("updating profile %q: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return directory.Profile{}, fmt.Errorf("committing profile update: %w", err)
	}
	return next, nil
}

// profileFields returns the mutable columns, name through assistant_endpoint,
// in table order.
func profileFields(p directory.Profile) ([]any, error) {
	lists := make([]any, 0, 5)
	for _, l := range []struct {
		name string
		v    []string
	}{
		{"tags", p.Tags}, {"skills", p.Skills}, {"offers", p.Offers}, {"seeks", p.Seeks}, {"industry", p.Industry},
	} {
		enc, err := encodeList(l.v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", l.name, err)
		}
		lists = append(lists, enc)
	}

	fields := []any{p.Name, p.Role, p.Location, p.Bio}
	fields = append(fields, lists...)
	fields = append(fields,
		p.OfferFree, p.OfferCondition, p.Email, p.LinkedInURL, p.PreferredContact, p.AssistantEndpoint,
	)
	return fields, nil
}

func scanProfile(row scanner) (directory.Profile, error) {
	var p directory.Profile
	var tags, skills, offers, seeks, industry, createdAt, updatedAt string
	if err := row.Scan(
		&p.ID, &p.Name, &p.Role, &p.Location, &p.Bio,
		&tags, &skills, &offers, &seeks, &industry,
		&p.OfferFree, &p.OfferCondition, &p.Email, &p.LinkedInURL, &p.PreferredContact, &p.AssistantEndpoint,
		&createdAt, &updatedAt,
	); err != nil {
		return directory.Profile{}, err
	}

	var err error
	if p.Tags, err = decodeList("tags", tags); err != nil {
		return directory.Profile{}, err
	}
	if p.Skills, err = decodeList("skills", skills); err != nil {
		return directory.Profile{}, err
	}
	if p.Offers, err = decodeList("offers", offers); err != nil {
		return directory.Profile{}, err
	}
	if p.Seeks, err = decodeList("seeks", seeks); err != nil {
		return directory.Profile{}, err
	}
	if p.Industry, err = decodeList("industry", industry); err != nil {
		return directory.Profile{}, err
	}
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return directory.Profile{}, err
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return directory.Profile{}, err
	}
	return p, nil
}
