package airbnb

import (
	"context"
	"errors"
	"fmt"
	"io"

	"airbnb-survey/config"
	"airbnb-survey/models"
	"airbnb-survey/storage"
	"airbnb-survey/utils"
)

// SearchSummary counts what one enumeration run did.
type SearchSummary struct {
	PagesFetched  int
	PagesSkipped  int
	PagesFailed   int
	ListingsFound int
	StubsSent     int
}

// Surveyor walks the search space of a survey: room type, neighborhood,
// party size and page, in that nesting order.
type Surveyor struct {
	store   storage.Gateway
	ledger  *VisitLedger
	fetcher Fetcher
	pacer   *utils.Pacer
	logger  *utils.Logger

	baseURL         string
	maxPages        int
	maxGuests       int
	sharedMaxGuests int

	stubs *utils.IDSet
}

// NewSurveyor creates a Surveyor for the bounds in cfg.
func NewSurveyor(store storage.Gateway, fetcher Fetcher, cfg *config.Config, logger *utils.Logger) *Surveyor {
	return &Surveyor{
		store:           store,
		ledger:          NewVisitLedger(store),
		fetcher:         fetcher,
		pacer:           utils.NewPacer(cfg.RequestJitter()),
		logger:          logger,
		baseURL:         cfg.BaseURL,
		maxPages:        cfg.SearchMaxPages,
		maxGuests:       cfg.SearchMaxGuests,
		sharedMaxGuests: cfg.SharedMaxGuests,
		stubs:           utils.NewIDSet(),
	}
}

func (s *Surveyor) guestLimit(rt models.RoomType) int {
	if rt.IsShared() {
		return s.sharedMaxGuests
	}
	return s.maxGuests
}

// Run enumerates every unvisited page of the survey, storing a stub for each
// listing found and a visit fact for each page fetched. Re-running a finished
// survey fetches nothing.
func (s *Surveyor) Run(ctx context.Context, surveyID int64) (*SearchSummary, error) {
	areaID, area, err := s.store.SurveyAreaInfo(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("survey %d: search area: %w", surveyID, err)
	}
	neighborhoods, err := s.store.ListNeighborhoods(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("survey %d: neighborhoods: %w", surveyID, err)
	}
	s.logger.Info("[survey] Survey %d over %s: %d neighborhoods", surveyID, area, len(neighborhoods))

	sum := &SearchSummary{}
	for _, rt := range models.RoomTypes {
		s.logger.Debug("[survey] Searching for %s", rt)
		for _, nb := range neighborhoods {
			for guests := 1; guests <= s.guestLimit(rt); guests++ {
				cell := models.PageKey{SurveyID: surveyID, RoomType: rt, Neighborhood: nb, Guests: guests}
				if err := s.crawlCell(ctx, area, cell, sum); err != nil {
					return sum, err
				}
			}
		}
	}

	s.logger.Info("[survey] Survey %d done: %d pages fetched, %d skipped, %d failed, %d listings found",
		surveyID, sum.PagesFetched, sum.PagesSkipped, sum.PagesFailed, sum.ListingsFound)
	return sum, nil
}

// crawlCell pages through one (room type, neighborhood, guests) cell until a
// page comes back empty or the page bound is reached.
func (s *Surveyor) crawlCell(ctx context.Context, area string, cell models.PageKey, sum *SearchSummary) error {
	for page := 1; page <= s.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := cell
		key.Page = page

		status, err := s.ledger.Status(ctx, key)
		if err != nil {
			return err
		}
		switch status {
		case models.VisitedWithResults:
			s.logger.Debug("[survey] %s: already visited", describeKey(key))
			sum.PagesSkipped++
			continue
		case models.VisitedEmpty:
			s.logger.Debug("[survey] %s: already visited, no rooms", describeKey(key))
			return nil
		}

		count, err := s.visitPage(ctx, area, key, sum)
		if err != nil {
			if isPageFailure(err) {
				s.logger.Error("[survey] %s: %v", describeKey(key), err)
				sum.PagesFailed++
				return nil
			}
			return err
		}
		if count == 0 {
			return nil
		}
	}
	return nil
}

// visitPage fetches one search page, stores its stubs and then its visit fact.
func (s *Surveyor) visitPage(ctx context.Context, area string, key models.PageKey, sum *SearchSummary) (int, error) {
	s.logger.Info("[survey] %s", describeKey(key))
	ids, err := s.fetchPage(ctx, area, key)
	if err != nil {
		return 0, err
	}
	sum.PagesFetched++
	sum.ListingsFound += len(ids)

	for _, id := range ids {
		if !s.stubs.Add(id) {
			continue
		}
		err := s.store.UpsertListing(ctx, models.NewStub(id, key.RoomType, key.SurveyID), models.InsertOrSkip)
		switch {
		case err == nil:
			sum.StubsSent++
		case errors.Is(err, storage.ErrConflict):
			s.logger.Info("[survey] Room %d already stored", id)
		default:
			return 0, fmt.Errorf("save room %d: %w", id, err)
		}
	}
	if len(ids) == 0 {
		s.logger.Info("[survey] No rooms found")
	}

	if err := s.ledger.Record(ctx, key, len(ids) > 0); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Surveyor) fetchPage(ctx context.Context, area string, key models.PageKey) ([]int64, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	u := SearchPageURL(s.baseURL, area, key)
	body, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	ids, err := ParseSearchPage(body)
	if err != nil {
		var pe *ParseStructureError
		if errors.As(err, &pe) {
			pe.URL = u
		}
		return nil, err
	}
	s.logger.Debug("[survey] Found %d rooms", len(ids))
	return ids, nil
}

// Preview fetches the first page of the first cell of the survey and writes
// the listings found to w. Neither the ledger nor the store is touched.
func (s *Surveyor) Preview(ctx context.Context, surveyID int64, w io.Writer) (int, error) {
	areaID, area, err := s.store.SurveyAreaInfo(ctx, surveyID)
	if err != nil {
		return 0, fmt.Errorf("survey %d: search area: %w", surveyID, err)
	}
	neighborhoods, err := s.store.ListNeighborhoods(ctx, areaID)
	if err != nil {
		return 0, fmt.Errorf("survey %d: neighborhoods: %w", surveyID, err)
	}
	if len(neighborhoods) == 0 {
		return 0, fmt.Errorf("survey %d: search area %s has no neighborhoods", surveyID, area)
	}

	key := models.PageKey{
		SurveyID:     surveyID,
		RoomType:     models.RoomTypes[0],
		Neighborhood: neighborhoods[0],
		Guests:       1,
		Page:         1,
	}
	s.logger.Info("[survey] Preview %s", describeKey(key))
	ids, err := s.fetchPage(ctx, area, key)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%d\n", key.RoomType, id)
	}
	fmt.Fprintf(w, "%d rooms on %s\n", len(ids), describeKey(key))
	return len(ids), nil
}
