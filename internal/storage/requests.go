package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uwillc/backroom/internal/directory"
)

const requestColumns = `id, from_user, to_user, message, reason, status, response_message,
	contact_shared, created_at, responded_at`

// InsertRequest stores a new connection request, assigning an id when none is
// set. It returns ErrConflict when a pending request already exists for the
// same (from, to) pair and ErrNotFound when either profile is missing.
func (s *Store) InsertRequest(ctx context.Context, r directory.ConnectionRequest) (directory.ConnectionRequest, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = directory.StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.ContactShared == nil {
		r.ContactShared = map[string]string{}
	}

	shared, err := encodeMap(r.ContactShared)
	if err != nil {
		return directory.ConnectionRequest{}, fmt.Errorf("encoding contact_shared: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO connection_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FromUser, r.ToUser, r.Message, r.Reason, string(r.Status), r.ResponseMessage,
		shared, formatTime(r.CreatedAt), nullTime(r.RespondedAt),
	)
	switch {
	case isUniqueViolation(err):
		return directory.ConnectionRequest{}, fmt.Errorf("pending request %s -> %s: %w", r.FromUser, r.ToUser, ErrConflict)
	case isForeignKeyViolation(err):
		return directory.ConnectionRequest{}, fmt.Errorf("request references unknown profile: %w", ErrNotFound)
	case err != nil:
		return directory.ConnectionRequest{}, fmt.Errorf("inserting request: %w", err)
	}
	return r, nil
}

// GetRequest returns the request with the given id, or ErrNotFound.
func (s *Store) GetRequest(ctx context.Context, id string) (directory.ConnectionRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM connection_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.ConnectionRequest{}, ErrNotFound
	}
	return r, err
}

// ResolveRequest moves a pending request into a terminal state. The update is
// conditional on the stored status still being pending, so of two concurrent
// responders only one succeeds; the other gets ErrConflict.
func (s *Store) ResolveRequest(ctx context.Context, id string, res directory.Resolution) (directory.ConnectionRequest, error) {
	if !res.Status.Terminal() {
		return directory.ConnectionRequest{}, fmt.Errorf("resolving request %s: status %q is not terminal", id, res.Status)
	}
	shared, err := encodeMap(res.ContactShared)
	if err != nil {
		return directory.ConnectionRequest{}, fmt.Errorf("encoding contact_shared: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE connection_requests
		SET status = ?, response_message = ?, contact_shared = ?, responded_at = ?
		WHERE id = ? AND status = 'pending'`,
		string(res.Status), res.ResponseMessage, shared, formatTime(res.RespondedAt), id,
	)
	if err != nil {
		return directory.ConnectionRequest{}, fmt.Errorf("resolving request %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return directory.ConnectionRequest{}, err
	}

	r, err := s.GetRequest(ctx, id)
	if err != nil {
		return directory.ConnectionRequest{}, err
	}
	if n == 0 {
		return r, fmt.Errorf("request %s already %s: %w", id, r.Status, ErrConflict)
	}
	return r, nil
}

// ListRequests returns requests matching f, oldest first.
func (s *Store) ListRequests(ctx context.Context, f directory.RequestFilter) ([]directory.ConnectionRequest, error) {
	var where []string
	var args []any
	if f.FromUser != "" {
		where = append(where, "from_user = ?")
		args = append(args, f.FromUser)
	}
	if f.ToUser != "" {
		where = append(where, "to_user = ?")
		args = append(args, f.ToUser)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + requestColumns + ` FROM connection_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []directory.ConnectionRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanRequest(row scanner) (directory.ConnectionRequest, error) {
	var r directory.ConnectionRequest
	var status, shared, createdAt string
	var respondedAt sql.NullString
	if err := row.Scan(
		&r.ID, &r.FromUser, &r.ToUser, &r.Message, &r.Reason, &status, &r.ResponseMessage,
		&shared, &createdAt, &respondedAt,
	); err != nil {
		return directory.ConnectionRequest{}, err
	}

	r.Status = directory.Status(status)
	var err error
	if r.ContactShared, err = decodeMap("contact_shared", shared); err != nil {
		return directory.ConnectionRequest{}, err
	}
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return directory.ConnectionRequest{}, err
	}
	if respondedAt.Valid {
		t, err := parseTime("responded_at", respondedAt.String)
		if err != nil {
			return directory.ConnectionRequest{}, err
		}
		r.RespondedAt = &t
	}
	return r, nil
}
