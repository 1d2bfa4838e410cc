package stream_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/stream"
)

// fakeReleaser records the ids released per call.
type fakeReleaser struct {
	calls [][]uuid.UUID
	err   error
}

func (f *fakeReleaser) ReleaseRefs(ctx context.Context, strongIDs []uuid.UUID) error {
	f.calls = append(f.calls, strongIDs)
	return f.err
}

func expiredDayRecord(day string, ttl string, meals map[string][]string) events.DynamoDBEventRecord {
	mealsAttr := make(map[string]events.DynamoDBAttributeValue, len(meals))
	for slot, ids := range meals {
		list := make([]events.DynamoDBAttributeValue, len(ids))
		for i, id := range ids {
			list[i] = events.NewStringAttribute(id)
		}
		mealsAttr[slot] = events.NewListAttribute(list)
	}
	return events.DynamoDBEventRecord{
		EventID:   "evt-" + day,
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			OldImage: map[string]events.DynamoDBAttributeValue{
				"day":   events.NewStringAttribute(day),
				"meals": events.NewMapAttribute(mealsAttr),
			},
			NewImage: map[string]events.DynamoDBAttributeValue{
				"day":   events.NewStringAttribute(day),
				"meals": events.NewMapAttribute(mealsAttr),
				"ttl":   events.NewNumberAttribute(ttl),
			},
		},
	}
}

func TestNewHandler(t *testing.T) {
	if h := stream.NewHandler(nil, nil); h == nil {
		t.Fatal("expected non-nil Handler")
	}
}

func TestHandleRetention_ReleasesReferences(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	releaser := &fakeReleaser{}
	h := stream.NewHandler(releaser, nil)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			expiredDayRecord("2024-05-13", "1715558400", map[string][]string{
				"BREAKFAST": {a.String()},
				"SUPPER":    {b.String(), a.String()},
			}),
		},
	}

	if err := h.HandleRetention(context.Background(), event); err != nil {
		t.Fatalf("HandleRetention: %v", err)
	}
	if len(releaser.calls) != 1 {
		t.Fatalf("expected 1 release call, got %d", len(releaser.calls))
	}
	if len(releaser.calls[0]) != 2 {
		t.Errorf("expected 2 distinct ids released, got %v", releaser.calls[0])
	}
}

func TestHandleRetention_SkipsInsertAndRemove(t *testing.T) {
	releaser := &fakeReleaser{}
	h := stream.NewHandler(releaser, nil)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{EventName: "INSERT"},
			{EventName: "REMOVE"},
		},
	}

	if err := h.HandleRetention(context.Background(), event); err != nil {
		t.Fatalf("HandleRetention: %v", err)
	}
	if len(releaser.calls) != 0 {
		t.Errorf("expected no release calls, got %d", len(releaser.calls))
	}
}

func TestHandleRetention_EmptyMenuDoesNotCall(t *testing.T) {
	releaser := &fakeReleaser{}
	h := stream.NewHandler(releaser, nil)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			expiredDayRecord("2024-05-13", "1715558400", map[string][]string{}),
		},
	}

	if err := h.HandleRetention(context.Background(), event); err != nil {
		t.Fatalf("HandleRetention: %v", err)
	}
	if len(releaser.calls) != 0 {
		t.Errorf("expected no release calls for empty menu, got %d", len(releaser.calls))
	}
}

func TestHandleRetention_PropagatesReleaseError(t *testing.T) {
	releaser := &fakeReleaser{err: errors.New("throttled")}
	h := stream.NewHandler(releaser, nil)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			expiredDayRecord("2024-05-13", "1715558400", map[string][]string{
				"LUNCH": {uuid.New().String()},
			}),
		},
	}

	// The error must surface so Lambda retries the batch.
	if err := h.HandleRetention(context.Background(), event); err == nil {
		t.Error("expected release error to propagate")
	}
}
