package dynamo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/storage"
)

// A pending request owns a lock item in the requests table keyed on its
// ordered pair. Lock items carry no from_user or to_user attribute, so they
// stay out of both secondary indexes.
const lockKind = "pending_lock"

// The sender id is length-prefixed so ids containing '#' cannot collide:
// ("a#b", "c") and ("a", "b#c") map to different locks.
func pendingLockID(from, to string) string {
	return fmt.Sprintf("pending#%d:%s#%s", len(from), from, to)
}

// Transaction item positions in InsertRequest.
const (
	txRequest = iota
	txLock
	txFromProfile
	txToProfile
)

// InsertRequest writes the request, its pending-pair lock and existence checks
// on both profiles in one transaction. A held lock yields storage.ErrConflict;
// a missing profile yields storage.ErrNotFound.
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

	item, err := marshal(r)
	if err != nil {
		return directory.ConnectionRequest{}, fmt.Errorf("encoding request: %w", err)
	}
	lock := map[string]types.AttributeValue{
		"id":         &types.AttributeValueMemberS{Value: pendingLockID(r.FromUser, r.ToUser)},
		"kind":       &types.AttributeValueMemberS{Value: lockKind},
		"request_id": &types.AttributeValueMemberS{Value: r.ID},
	}
	notExists := aws.String("attribute_not_exists(id)")
	exists := aws.String("attribute_exists(id)")

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			txRequest: {Put: &types.Put{TableName: aws.String(s.tables.Requests), Item: item, ConditionExpression: notExists}},
			txLock:    {Put: &types.Put{TableName: aws.String(s.tables.Requests), Item: lock, ConditionExpression: notExists}},
			txFromProfile: {ConditionCheck: &types.ConditionCheck{
				TableName: aws.String(s.tables.Profiles), Key: idKey(r.FromUser), ConditionExpression: exists,
			}},
			txToProfile: {ConditionCheck: &types.ConditionCheck{
				TableName: aws.String(s.tables.Profiles), Key: idKey(r.ToUser), ConditionExpression: exists,
			}},
		},
	})
	if err == nil {
		return r, nil
	}
	if failed, ok := canceledAt(err); ok {
		if slices.Contains(failed, txFromProfile) || slices.Contains(failed, txToProfile) {
			return directory.ConnectionRequest{}, fmt.Errorf("request references unknown profile: %w", storage.ErrNotFound)
		}
		if len(failed) > 0 {
			return directory.ConnectionRequest{}, fmt.Errorf("pending request %s -> %s: %w", r.FromUser, r.ToUser, storage.ErrConflict)
		}
	}
	return directory.ConnectionRequest{}, fmt.Errorf("inserting request: %w", err)
}

// GetRequest returns the request with the given id, or storage.ErrNotFound.
func (s *Store) GetRequest(ctx context.Context, id string) (directory.ConnectionRequest, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Requests),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return directory.ConnectionRequest{}, fmt.Errorf("getting request %s: %w", id, err)
	}
	if out.Item == nil || isLock(out.Item) {
		return directory.ConnectionRequest{}, storage.ErrNotFound
	}
	return decodeRequest(out.Item)
}

// ResolveRequest sets the terminal state and releases the pending-pair lock in
// one transaction conditional on the request still being pending.
func (s *Store) ResolveRequest(ctx context.Context, id string, res directory.Resolution) (directory.ConnectionRequest, error) {
	if !res.Status.Terminal() {
		return directory.ConnectionRequest{}, fmt.Errorf("resolving request %s: status %q is not terminal", id, res.Status)
	}
	current, err := s.GetRequest(ctx, id)
	if err != nil {
		return directory.ConnectionRequest{}, err
	}
	if current.Status != directory.StatusPending {
		return current, fmt.Errorf("request %s already %s: %w", id, current.Status, storage.ErrConflict)
	}

	shared := res.ContactShared
	if shared == nil {
		shared = map[string]string{}
	}
	sharedAV, err := marshal(shared)
	if err != nil {
		return directory.ConnectionRequest{}, fmt.Errorf("encoding contact_shared: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:           aws.String(s.tables.Requests),
				Key:                 idKey(id),
				UpdateExpression:    aws.String("SET #status = :status, response_message = :msg, contact_shared = :shared, responded_at = :at"),
				ConditionExpression: aws.String("#status = :pending"),
				ExpressionAttributeNames: map[string]string{
					"#status": "status",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":status":  &types.AttributeValueMemberS{Value: string(res.Status)},
					":msg":     &types.AttributeValueMemberS{Value: res.ResponseMessage},
					":shared":  &types.AttributeValueMemberM{Value: sharedAV},
					":at":      &types.AttributeValueMemberS{Value: res.RespondedAt.UTC().Format(time.RFC3339Nano)},
					":pending": &types.AttributeValueMemberS{Value: string(directory.StatusPending)},
				},
			}},
			{Delete: &types.Delete{
				TableName: aws.String(s.tables.Requests),
				Key:       idKey(pendingLockID(current.FromUser, current.ToUser)),
			}},
		},
	})
	if err != nil {
		if failed, ok := canceledAt(err); ok && len(failed) > 0 {
			latest, gerr := s.GetRequest(ctx, id)
			if gerr != nil {
				return directory.ConnectionRequest{}, gerr
			}
			return latest, fmt.Errorf("request %s already %s: %w", id, latest.Status, storage.ErrConflict)
		}
		return directory.ConnectionRequest{}, fmt.Errorf("resolving request %s: %w", id, err)
	}

	at := res.RespondedAt.UTC()
	current.Status = res.Status
	current.ResponseMessage = res.ResponseMessage
	current.ContactShared = shared
	current.RespondedAt = &at
	return current, nil
}

// ListRequests returns requests matching f, oldest first. A sender or
// recipient filter is served from the matching secondary index; an
// unfiltered listing scans the table.
func (s *Store) ListRequests(ctx context.Context, f directory.RequestFilter) ([]directory.ConnectionRequest, error) {
	var items []map[string]types.AttributeValue
	var err error
	switch {
	case f.FromUser != "":
		items, err = s.queryIndex(ctx, fromUserIndex, "from_user", f.FromUser)
	case f.ToUser != "":
		items, err = s.queryIndex(ctx, toUserIndex, "to_user", f.ToUser)
	default:
		items, err = s.scanRequests(ctx)
	}
	if err != nil {
		return nil, err
	}

	requests := []directory.ConnectionRequest{}
	for _, item := range items {
		if isLock(item) {
			continue
		}
		r, err := decodeRequest(item)
		if err != nil {
			return nil, err
		}
		if (f.FromUser != "" && r.FromUser != f.FromUser) ||
			(f.ToUser != "" && r.ToUser != f.ToUser) ||
			(f.Status != "" && r.Status != f.Status) {
			continue
		}
		requests = append(requests, r)
	}

	slices.SortStableFunc(requests, func(a, b directory.ConnectionRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return requests, nil
}

func (s *Store) queryIndex(ctx context.Context, index, attr, value string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pages := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Requests),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", index, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (s *Store) scanRequests(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pages := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.tables.Requests),
		FilterExpression:         aws.String("attribute_not_exists(#kind)"),
		ExpressionAttributeNames: map[string]string{"#kind": "kind"},
		ConsistentRead:           aws.Bool(true),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning requests: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func isLock(item map[string]types.AttributeValue) bool {
	_, ok := item["kind"]
	return ok
}

func decodeRequest(item map[string]types.AttributeValue) (directory.ConnectionRequest, error) {
	var r directory.ConnectionRequest
	if err := unmarshal(item, &r); err != nil {
		return directory.ConnectionRequest{}, fmt.Errorf("decoding request: %w", err)
	}
	if r.ContactShared == nil {
		r.ContactShared = map[string]string{}
	}
	return r, nil
}
