package airbnb

import (
	"context"
	"errors"
	"fmt"

	"airbnb-survey/config"
	"airbnb-survey/models"
	"airbnb-survey/storage"
	"airbnb-survey/utils"
)

const (
	// maxConsecutiveFailures ends a fill run when the site stops answering.
	maxConsecutiveFailures = 10
	// maxRepeatPicks ends a fill run when the store keeps handing back rooms
	// already tried in this run, i.e. only priceless pages remain.
	maxRepeatPicks = 25
)

// FillSummary counts what one fill run did.
type FillSummary struct {
	Processed int
	Filled    int
	Deleted   int
	Failed    int
}

// Filler completes stub listings from their detail pages.
type Filler struct {
	store     storage.Gateway
	fetcher   Fetcher
	extractor *Extractor
	pacer     *utils.Pacer
	logger    *utils.Logger

	baseURL  string
	maxRooms int

	attempted *utils.IDSet
}

// NewFiller creates a Filler for the bounds in cfg.
func NewFiller(store storage.Gateway, fetcher Fetcher, cfg *config.Config, logger *utils.Logger) *Filler {
	return &Filler{
		store:     store,
		fetcher:   fetcher,
		extractor: NewExtractor(logger),
		pacer:     utils.NewPacer(cfg.RequestJitter()),
		logger:    logger,
		baseURL:   cfg.BaseURL,
		maxRooms:  cfg.FillMaxRooms,
		attempted: utils.NewIDSet(),
	}
}

// Run repeatedly picks a listing with no price, fetches its detail page and
// stores the result with insert-or-replace. It stops when no such listing
// remains or maxRooms listings have been processed.
func (f *Filler) Run(ctx context.Context) (*FillSummary, error) {
	sum := &FillSummary{}
	failures, repeats := 0, 0

	for sum.Processed < f.maxRooms {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		ref, ok, err := f.store.LookupUnfilledListing(ctx)
		if err != nil {
			return sum, fmt.Errorf("fill: pick listing: %w", err)
		}
		if !ok {
			f.logger.Info("[fill] No listings left to fill")
			break
		}
		if f.attempted.Add(ref.RoomID) {
			repeats = 0
		} else {
			repeats++
			if repeats >= maxRepeatPicks {
				f.logger.Warn("[fill] Only rooms already tried in this run remain; stopping")
				break
			}
		}

		if err := f.pacer.Wait(ctx); err != nil {
			return sum, err
		}
		sum.Processed++
		f.logger.Info("[fill] Getting info for room %d", ref.RoomID)

		l, err := FetchListing(ctx, f.fetcher, f.extractor, f.baseURL, ref.RoomID, ref.SurveyID)
		if err != nil {
			if !isPageFailure(err) {
				return sum, err
			}
			sum.Failed++
			failures++
			f.logger.Error("[fill] Room %d: %v", ref.RoomID, err)
			if failures >= maxConsecutiveFailures {
				return sum, fmt.Errorf("fill: %d consecutive page failures: %w", failures, err)
			}
			continue
		}
		failures = 0

		if err := f.store.UpsertListing(ctx, l, models.InsertOrReplace); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				f.logger.Error("[fill] Room %d: %v", ref.RoomID, err)
				continue
			}
			return sum, fmt.Errorf("fill: save room %d: %w", ref.RoomID, err)
		}
		if l.Deleted {
			sum.Deleted++
		} else {
			sum.Filled++
		}
	}

	f.logger.Info("[fill] Done: %d processed, %d filled, %d deleted, %d failed",
		sum.Processed, sum.Filled, sum.Deleted, sum.Failed)
	return sum, nil
}
