package airbnb

import (
	"context"
	"fmt"

	"airbnb-survey/models"
	"airbnb-survey/storage"
)

// VisitLedger answers whether a search page was already fetched in a survey
// and records the outcome of new fetches. Facts are never overwritten.
type VisitLedger struct {
	store storage.Gateway
}

// NewVisitLedger creates a VisitLedger backed by store.
func NewVisitLedger(store storage.Gateway) *VisitLedger {
	return &VisitLedger{store: store}
}

// Status returns what is known about key.
func (v *VisitLedger) Status(ctx context.Context, key models.PageKey) (models.PageStatus, error) {
	status, err := v.store.PageVisitStatus(ctx, key)
	if err != nil {
		return models.Unvisited, fmt.Errorf("page status %s: %w", describeKey(key), err)
	}
	return status, nil
}

// Record stores that key was fetched and whether it listed any rooms.
func (v *VisitLedger) Record(ctx context.Context, key models.PageKey, hasResults bool) error {
	if err := v.store.RecordPageVisit(ctx, key, hasResults); err != nil {
		return fmt.Errorf("record page %s: %w", describeKey(key), err)
	}
	return nil
}

func describeKey(k models.PageKey) string {
	return fmt.Sprintf("%s, %s, %d guests, page %d", k.RoomType, k.Neighborhood, k.Guests, k.Page)
}
