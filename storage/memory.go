package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"airbnb-survey/models"
)

// MemoryStore is an in-process Store with the same upsert and ledger
// semantics as PostgresStore. It backs tests and dry runs.
type MemoryStore struct {
	mu sync.Mutex

	nextAreaID   int64
	nextSurveyID int64
	areas        map[int64]*memArea
	surveys      map[int64]models.Survey
	listings     map[int64]models.Listing
	visits       map[models.PageKey]bool
}

type memArea struct {
	name          string
	cities        []string
	neighborhoods []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		areas:    make(map[int64]*memArea),
		surveys:  make(map[int64]models.Survey),
		listings: make(map[int64]models.Listing),
		visits:   make(map[models.PageKey]bool),
	}
}

func (m *MemoryStore) LookupUnfilledListing(ctx context.Context) (models.ListingRef, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Lowest id first keeps the pick deterministic.
	var best *models.Listing
	for id := range m.listings {
		l := m.listings[id]
		if l.Price != nil || l.Deleted {
			continue
		}
		if best == nil || l.RoomID < best.RoomID {
			lc := l
			best = &lc
		}
	}
	if best == nil {
		return models.ListingRef{}, false, nil
	}
	return models.ListingRef{RoomID: best.RoomID, SurveyID: best.SurveyID}, true, nil
}

func (m *MemoryStore) UpsertListing(ctx context.Context, l *models.Listing, mode models.UpsertMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.listings[l.RoomID]
	if l.Deleted {
		if ok {
			existing.Deleted = true
			existing.LastModified = time.Now()
			m.listings[l.RoomID] = existing
		}
		return nil
	}
	if ok && mode == models.InsertOrSkip {
		return ErrConflict
	}

	row := *l
	row.LastModified = time.Now()
	m.listings[l.RoomID] = row
	return nil
}

func (m *MemoryStore) PageVisitStatus(ctx context.Context, key models.PageKey) (models.PageStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hasResults, ok := m.visits[key]
	switch {
	case !ok:
		return models.Unvisited, nil
	case hasResults:
		return models.VisitedWithResults, nil
	default:
		return models.VisitedEmpty, nil
	}
}

func (m *MemoryStore) RecordPageVisit(ctx context.Context, key models.PageKey, hasResults bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surveys[key.SurveyID]
	if !ok {
		return fmt.Errorf("memory: survey %d: %w", key.SurveyID, ErrNotFound)
	}
	if !contains(m.areas[s.SearchAreaID].neighborhoods, key.Neighborhood) {
		return fmt.Errorf("memory: neighborhood %q: %w", key.Neighborhood, ErrNotFound)
	}
	if _, exists := m.visits[key]; !exists {
		m.visits[key] = hasResults
	}
	return nil
}

func (m *MemoryStore) ListNeighborhoods(ctx context.Context, searchAreaID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.areas[searchAreaID]
	if !ok {
		return nil, fmt.Errorf("memory: search area %d: %w", searchAreaID, ErrNotFound)
	}
	out := append([]string(nil), a.neighborhoods...)
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) SurveyAreaInfo(ctx context.Context, surveyID int64) (int64, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surveys[surveyID]
	if !ok {
		return 0, "", fmt.Errorf("memory: survey %d: %w", surveyID, ErrNotFound)
	}
	return s.SearchAreaID, m.areas[s.SearchAreaID].name, nil
}

func (m *MemoryStore) AddSearchArea(ctx context.Context, area models.SearchArea, city string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, a := range m.areas {
		if a.name == area.Name {
			return id, false, nil
		}
	}
	m.nextAreaID++
	a := &memArea{name: area.Name}
	if city != "" {
		a.cities = append(a.cities, city)
	}
	for _, nb := range area.Neighborhoods {
		if !contains(a.neighborhoods, nb) {
			a.neighborhoods = append(a.neighborhoods, nb)
		}
	}
	m.areas[m.nextAreaID] = a
	return m.nextAreaID, true, nil
}

func (m *MemoryStore) FindSearchAreas(ctx context.Context, name string) ([]models.SearchAreaInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.SearchAreaInfo
	for id, a := range m.areas {
		if a.name == name {
			out = append(out, models.SearchAreaInfo{
				ID:                id,
				Name:              a.name,
				NeighborhoodCount: len(a.neighborhoods),
				CityCount:         len(a.cities),
			})
		}
	}
	return out, nil
}

func (m *MemoryStore) AddSurvey(ctx context.Context, searchArea, description string) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, a := range m.areas {
		if a.name != searchArea {
			continue
		}
		m.nextSurveyID++
		s := models.Survey{
			ID:           m.nextSurveyID,
			Date:         time.Now().Truncate(24 * time.Hour),
			Description:  description,
			SearchAreaID: id,
		}
		m.surveys[s.ID] = s
		return &s, nil
	}
	return nil, fmt.Errorf("memory: search area %q: %w", searchArea, ErrNotFound)
}

func (m *MemoryStore) ListSurveys(ctx context.Context) ([]models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Survey, 0, len(m.surveys))
	for _, s := range m.surveys {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetListing(ctx context.Context, roomID int64) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[roomID]
	if !ok {
		return nil, fmt.Errorf("memory: room %d: %w", roomID, ErrNotFound)
	}
	return &l, nil
}

func (m *MemoryStore) SurveyListings(ctx context.Context, surveyID int64) ([]*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Listing
	for id := range m.listings {
		l := m.listings[id]
		if l.SurveyID != nil && *l.SurveyID == surveyID {
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

// PageVisits returns a copy of every recorded fact.
func (m *MemoryStore) PageVisits() map[models.PageKey]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[models.PageKey]bool, len(m.visits))
	for k, v := range m.visits {
		out[k] = v
	}
	return out
}

func (m *MemoryStore) Close() error { return nil }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
