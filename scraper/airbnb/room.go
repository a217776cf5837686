package airbnb

import (
	"context"
	"errors"

	"airbnb-survey/models"
)

// FetchListing downloads the detail page of roomID and extracts it.
func FetchListing(ctx context.Context, f Fetcher, e *Extractor, base string, roomID int64, surveyID *int64) (*models.Listing, error) {
	u := RoomURL(base, roomID)
	body, err := f.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	l, err := e.Extract(body, roomID, surveyID)
	if err != nil {
		var pe *ParseStructureError
		if errors.As(err, &pe) && pe.URL == "" {
			pe.URL = u
		}
		return nil, err
	}
	return l, nil
}
