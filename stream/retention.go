// Package stream provides the DynamoDB Streams handler for day menu
// retention. When a day menu's TTL is set the handler releases the
// menu's dish references, so the dishes become deletable again before
// DynamoDB physically removes the expired item.
package stream

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

// RefReleaser releases timeline references on dishes. Satisfied by
// dynamostore.TimelineStore.
type RefReleaser interface {
	ReleaseRefs(ctx context.Context, strongIDs []uuid.UUID) error
}

// Handler processes DynamoDB stream events from the day menu table.
type Handler struct {
	timeline RefReleaser
	logger   *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(timeline RefReleaser, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		timeline: timeline,
		logger:   logger,
	}
}

// HandleRetention processes DynamoDB stream events for day menus whose
// TTL was just set. Designed to be used as an AWS Lambda handler.
func (h *Handler) HandleRetention(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	// Only MODIFY events where the TTL transitions from unset to set
	// carry work. RemoveDay releases references in its own transaction,
	// so its REMOVE event must be ignored, as must the later TTL expiry
	// REMOVE for already-released menus.
	if record.EventName != "MODIFY" {
		return nil
	}

	oldTTL := getNumberAttr(record.Change.OldImage, "ttl")
	newTTL := getNumberAttr(record.Change.NewImage, "ttl")
	if oldTTL != 0 || newTTL == 0 {
		return nil
	}

	day := getStringAttr(record.Change.NewImage, "day")
	dishIDs := dishIDsFromImage(record.Change.NewImage)

	h.logger.Info("releasing expired day menu references",
		"day", day,
		"ttl", newTTL,
		"dishCount", len(dishIDs),
	)

	if len(dishIDs) == 0 {
		return nil
	}
	if err := h.timeline.ReleaseRefs(ctx, dishIDs); err != nil {
		return err
	}

	h.logger.Info("day menu retention completed",
		"day", day,
		"dishesReleased", len(dishIDs),
	)
	return nil
}

// dishIDsFromImage extracts the distinct dish strong ids referenced by
// a day menu stream image. Entries that do not parse as UUIDs are
// skipped.
func dishIDsFromImage(image map[string]events.DynamoDBAttributeValue) []uuid.UUID {
	meals, ok := image["meals"]
	if !ok || meals.DataType() != events.DataTypeMap {
		return nil
	}

	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, slot := range meals.Map() {
		if slot.DataType() != events.DataTypeList {
			continue
		}
		for _, item := range slot.List() {
			if item.DataType() != events.DataTypeString {
				continue
			}
			id, err := uuid.Parse(item.String())
			if err != nil {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}
