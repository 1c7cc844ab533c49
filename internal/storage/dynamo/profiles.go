package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/storage"
)

// InsertProfile stores a new profile. It returns storage.ErrConflict when the
// id is already taken.
func (s *Store) InsertProfile(ctx context.Context, p directory.Profile) (directory.Profile, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.Normalize()

	if err := s.putProfile(ctx, p, "attribute_not_exists(id)", nil); err != nil {
		if isConditionFailed(err) {
			return directory.Profile{}, fmt.Errorf("profile %q: %w", p.ID, storage.ErrConflict)
		}
		return directory.Profile{}, fmt.Errorf("inserting profile %q: %w", p.ID, err)
	}
	return p, nil
}

// GetProfile returns the profile with the given id, or storage.ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, id string) (directory.Profile, error) {
	p, _, err := s.getProfile(ctx, id)
	return p, err
}

// getProfile also returns the stored updated_at attribute, which conditions
// the write in UpdateProfile.
func (s *Store) getProfile(ctx context.Context, id string) (directory.Profile, types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Profiles),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return directory.Profile{}, nil, fmt.Errorf("getting profile %q: %w", id, err)
	}
	if out.Item == nil {
		return directory.Profile{}, nil, storage.ErrNotFound
	}

	var p directory.Profile
	if err := unmarshal(out.Item, &p); err != nil {
		return directory.Profile{}, nil, fmt.Errorf("decoding profile %q: %w", id, err)
	}
	p.Normalize()
	return p, out.Item["updated_at"], nil
}

// ListProfiles scans the profiles table and returns every profile in
// registration order.
func (s *Store) ListProfiles(ctx context.Context) ([]directory.Profile, error) {
	profiles := []directory.Profile{}
	pages := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:      aws.String(s.tables.Profiles),
		ConsistentRead: aws.Bool(true),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning profiles: %w", err)
		}
		for _, item := range page.Items {
			var p directory.Profile
			if err := unmarshal(item, &p); err != nil {
				return nil, fmt.Errorf("decoding profile: %w", err)
			}
			p.Normalize()
			profiles = append(profiles, p)
		}
	}

	slices.SortStableFunc(profiles, func(a, b directory.Profile) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return profiles, nil
}

// updateAttempts bounds the read-modify-write loop in UpdateProfile.
const updateAttempts = 3

// UpdateProfile applies a partial update. The put is conditional on the item
// still carrying the updated_at that was read, so a concurrent update is
// retried against the newer item rather than overwritten. Losing every
// attempt yields storage.ErrConflict.
func (s *Store) UpdateProfile(ctx context.Context, id string, u directory.ProfileUpdate) (directory.Profile, error) {
	for range updateAttempts {
		current, stamp, err := s.getProfile(ctx, id)
		if err != nil {
			return directory.Profile{}, err
		}

		next := u.Apply(current)
		next.UpdatedAt = time.Now().UTC()
		if !next.UpdatedAt.After(current.UpdatedAt) {
			next.UpdatedAt = current.UpdatedAt.Add(time.Nanosecond)
		}

		cond := unchangedSince(stamp)
		err = s.putProfile(ctx, next, cond.expr, cond.values)
		if err == nil {
			return next, nil
		}
		if !isConditionFailed(err) {
			return directory.Profile{}, fmt.Errorf("updating profile %q: %w", id, err)
		}
		slog.Debug("profile changed during update, retrying", "id", id)
	}
	return directory.Profile{}, fmt.Errorf("profile %q changed concurrently: %w", id, storage.ErrConflict)
}

type condition struct {
	expr   string
	values map[string]types.AttributeValue
}

func unchangedSince(stamp types.AttributeValue) condition {
	if stamp == nil {
		return condition{expr: "attribute_exists(id) AND attribute_not_exists(updated_at)"}
	}
	return condition{
		expr:   "updated_at = :read",
		values: map[string]types.AttributeValue{":read": stamp},
	}
}

func (s *Store) putProfile(ctx context.Context, p directory.Profile, condition string, values map[string]types.AttributeValue) error {
	item, err := marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile %q: %w", p.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tables.Profiles),
		Item:                      item,
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
	})
	return err
}
