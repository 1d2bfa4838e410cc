package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

// TimelineStore is the DynamoDB implementation of timeline.EditableStore.
// It maintains per-dish reference counts in the ref table; the dish
// store's delete transaction condition-checks those counts, which is
// what makes the "referenced dishes are not deletable" invariant hold
// under concurrency.
type TimelineStore struct {
	s *Store
}

var (
	_ timeline.EditableStore   = (*TimelineStore)(nil)
	_ dishstore.ReferenceGuard = (*TimelineStore)(nil)
)

func dayID(date time.Time) string {
	return timeline.DateOf(date).Format(time.DateOnly)
}

func recordFromDay(day timeline.DayMenu, rev int) dayRecord {
	meals := make(map[string][]string, len(day.Meals))
	for mt, ids := range day.Meals {
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = id.String()
		}
		meals[string(mt)] = strs
	}
	return dayRecord{Day: dayID(day.Date), Meals: meals, Rev: rev}
}

func (r dayRecord) dayMenu() (timeline.DayMenu, error) {
	date, err := time.ParseInLocation(time.DateOnly, r.Day, time.UTC)
	if err != nil {
		return timeline.DayMenu{}, fmt.Errorf("dynamostore: corrupt day key %q: %w", r.Day, err)
	}
	day := timeline.NewDayMenu(date)
	for mt, strs := range r.Meals {
		for _, s := range strs {
			id, err := uuid.Parse(s)
			if err != nil {
				return timeline.DayMenu{}, fmt.Errorf("dynamostore: corrupt dish id %q in day %s: %w", s, r.Day, err)
			}
			day.Add(dishstore.MealTime(mt), id)
		}
	}
	return day, nil
}

// getDayRecord fetches the day item with a consistent read. found is
// false when no item exists for the date.
func (t *TimelineStore) getDayRecord(ctx context.Context, date time.Time) (dayRecord, bool, error) {
	out, err := t.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.s.config.TimelineTable),
		Key:            dayMenuKey(dayID(date)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dayRecord{}, false, fmt.Errorf("dynamostore: get day menu: %w", err)
	}
	if out.Item == nil {
		return dayRecord{}, false, nil
	}
	var rec dayRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return dayRecord{}, false, fmt.Errorf("dynamostore: unmarshal day menu: %w", err)
	}
	return rec, true, nil
}

// Day returns the day menu for a date.
func (t *TimelineStore) Day(ctx context.Context, date time.Time) (timeline.DayMenu, error) {
	rec, found, err := t.getDayRecord(ctx, date)
	if err != nil {
		return timeline.DayMenu{}, err
	}
	if !found || rec.expired(time.Now()) {
		return timeline.DayMenu{}, timeline.ErrNotFound
	}
	return rec.dayMenu()
}

// Range returns the day menus with from <= date <= to, in date order.
func (t *TimelineStore) Range(ctx context.Context, from, to time.Time) ([]timeline.DayMenu, error) {
	// The day key is ISO 8601, so lexicographic BETWEEN is date order.
	paginator := dynamodb.NewScanPaginator(t.s.client, &dynamodb.ScanInput{
		TableName:        aws.String(t.s.config.TimelineTable),
		FilterExpression: aws.String("#day BETWEEN :from AND :to"),
		ExpressionAttributeNames: map[string]string{
			"#day": "day",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":from": &types.AttributeValueMemberS{Value: dayID(from)},
			":to":   &types.AttributeValueMemberS{Value: dayID(to)},
		},
	})

	now := time.Now()
	var out []timeline.DayMenu
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamostore: scan day menus: %w", err)
		}
		var recs []dayRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("dynamostore: unmarshal day menus: %w", err)
		}
		for _, rec := range recs {
			if rec.expired(now) {
				continue
			}
			day, err := rec.dayMenu()
			if err != nil {
				return nil, err
			}
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UsesDish reports whether any day menu references the dish.
func (t *TimelineStore) UsesDish(ctx context.Context, strongID uuid.UUID) (bool, error) {
	out, err := t.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.s.config.RefTable),
		Key:            refKey(strongID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("dynamostore: get dish refs: %w", err)
	}
	if out.Item == nil {
		return false, nil
	}
	var rec refRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return false, fmt.Errorf("dynamostore: unmarshal dish refs: %w", err)
	}
	return rec.Refs > 0, nil
}

// refAdjust builds a ref-count adjustment for one dish. ADD creates the
// item with the delta as its initial count when it does not exist yet.
func (t *TimelineStore) refAdjust(strongID uuid.UUID, delta int) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:        aws.String(t.s.config.RefTable),
			Key:              refKey(strongID),
			UpdateExpression: aws.String("ADD refs :delta"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
			},
		},
	}
}

// dishLiveCheck builds a condition check asserting the dish exists and
// is not tombstoned.
func (t *TimelineStore) dishLiveCheck(strongID uuid.UUID) types.TransactWriteItem {
	return types.TransactWriteItem{
		ConditionCheck: &types.ConditionCheck{
			TableName:           aws.String(t.s.config.DishTable),
			Key:                 dishKey(strongID),
			ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(deleted_at)"),
		},
	}
}

// PutDay stores or replaces the day menu for its date. The transaction
// condition-checks liveness of every newly referenced dish and adjusts
// ref counts for the delta against the previous menu, so the delete
// guard and the timeline can never disagree.
func (t *TimelineStore) PutDay(ctx context.Context, day timeline.DayMenu) error {
	if err := day.Validate(); err != nil {
		return err
	}

	prev, found, err := t.getDayRecord(ctx, day.Date)
	if err != nil {
		return err
	}

	// An expired record's references were already released by the
	// retention pipeline; only a live previous menu contributes refs.
	var prevIDs []uuid.UUID
	prevRev := 0
	if found {
		prevRev = prev.Rev
		if !prev.expired(time.Now()) {
			prevDay, err := prev.dayMenu()
			if err != nil {
				return err
			}
			prevIDs = prevDay.Dishes()
		}
	}

	nextIDs := day.Dishes()
	added, removed := diffIDs(prevIDs, nextIDs)

	var items []types.TransactWriteItem
	for _, id := range added {
		items = append(items, t.dishLiveCheck(id))
	}
	liveChecks := len(items)
	for _, id := range added {
		items = append(items, t.refAdjust(id, 1))
	}
	for _, id := range removed {
		items = append(items, t.refAdjust(id, -1))
	}

	rec, err := marshalRecord(recordFromDay(day, prevRev+1))
	if err != nil {
		return err
	}
	dayPut := types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(t.s.config.TimelineTable),
			Item:                rec,
			ConditionExpression: aws.String("attribute_not_exists(#day) OR #rev = :prev_rev"),
			ExpressionAttributeNames: map[string]string{
				"#day": "day",
				"#rev": "rev",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prev_rev": &types.AttributeValueMemberN{Value: strconv.Itoa(prevRev)},
			},
		},
	}
	items = append(items, dayPut)

	_, err = t.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if failed := failedIndexes(err); failed != nil {
			for _, idx := range failed {
				if idx < liveChecks {
					return fmt.Errorf("%w: %s", timeline.ErrUnknownDish, added[idx])
				}
			}
			// The rev condition on the day put is the only other
			// conditional item.
			return ErrConcurrentModification
		}
		return fmt.Errorf("dynamostore: put day menu: %w", err)
	}
	return nil
}

// RemoveDay deletes the day menu for a date and releases its dish
// references in the same transaction.
func (t *TimelineStore) RemoveDay(ctx context.Context, date time.Time) error {
	rec, found, err := t.getDayRecord(ctx, date)
	if err != nil {
		return err
	}
	if !found || rec.expired(time.Now()) {
		return timeline.ErrNotFound
	}
	day, err := rec.dayMenu()
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{
		{
			Delete: &types.Delete{
				TableName:           aws.String(t.s.config.TimelineTable),
				Key:                 dayMenuKey(rec.Day),
				ConditionExpression: aws.String("#rev = :rev"),
				ExpressionAttributeNames: map[string]string{
					"#rev": "rev",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":rev": &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Rev)},
				},
			},
		},
	}
	for _, id := range day.Dishes() {
		items = append(items, t.refAdjust(id, -1))
	}

	_, err = t.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if failedIndexes(err) != nil {
			return ErrConcurrentModification
		}
		return fmt.Errorf("dynamostore: remove day menu: %w", err)
	}
	return nil
}

// ExpireDay sets a TTL on the day menu so DynamoDB removes it after the
// retention deadline. The stream handler observes the TTL being set and
// releases the menu's dish references; until then the dishes stay
// guarded.
func (t *TimelineStore) ExpireDay(ctx context.Context, date time.Time, deadline time.Time) error {
	_, err := t.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(t.s.config.TimelineTable),
		Key:                 dayMenuKey(dayID(date)),
		UpdateExpression:    aws.String("SET #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_exists(#day)"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
			"#day": "day",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(deadline.Unix(), 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return timeline.ErrNotFound
		}
		return fmt.Errorf("dynamostore: expire day menu: %w", err)
	}
	return nil
}

// ReleaseRefs decrements the ref count for each dish. The stream
// handler calls this when a day menu's TTL fires.
func (t *TimelineStore) ReleaseRefs(ctx context.Context, strongIDs []uuid.UUID) error {
	if len(strongIDs) == 0 {
		return nil
	}
	items := make([]types.TransactWriteItem, 0, len(strongIDs))
	for _, id := range strongIDs {
		items = append(items, t.refAdjust(id, -1))
	}
	_, err := t.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return fmt.Errorf("dynamostore: release dish refs: %w", err)
	}
	return nil
}

// diffIDs splits next against prev into newly added and no longer
// present ids.
func diffIDs(prev, next []uuid.UUID) (added, removed []uuid.UUID) {
	prevSet := make(map[uuid.UUID]struct{}, len(prev))
	for _, id := range prev {
		prevSet[id] = struct{}{}
	}
	nextSet := make(map[uuid.UUID]struct{}, len(next))
	for _, id := range next {
		nextSet[id] = struct{}{}
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := nextSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
