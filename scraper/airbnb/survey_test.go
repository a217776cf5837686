package airbnb

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"airbnb-survey/config"
	"airbnb-survey/models"
	"airbnb-survey/storage"
)

const testBase = "https://example.test"

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:         testBase,
		SearchMaxPages:  3,
		SearchMaxGuests: 2,
		SharedMaxGuests: 1,
		FillMaxRooms:    100,
	}
}

func seedSurvey(t *testing.T, s *storage.MemoryStore, neighborhoods ...string) *models.Survey {
	t.Helper()
	ctx := context.Background()
	if _, _, err := s.AddSearchArea(ctx, models.SearchArea{Name: "Rome", Neighborhoods: neighborhoods}, "Rome"); err != nil {
		t.Fatal(err)
	}
	survey, err := s.AddSurvey(ctx, "Rome", "test")
	if err != nil {
		t.Fatal(err)
	}
	return survey
}

func privateFirstPage(u string) bool {
	return strings.Contains(u, "room_types%5B%5D=Private%20room") &&
		strings.Contains(u, "guests=1&") && strings.HasSuffix(u, "page=1")
}

// onePrivatePage lists rooms 1 and 2 on the first private-room page and
// nothing anywhere else.
func onePrivatePage(u string) ([]byte, error) {
	if privateFirstPage(u) {
		return []byte(searchPage("1", "2")), nil
	}
	return []byte(searchPage()), nil
}

func TestSurveyorRunCoversSearchSpace(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")
	f := &fakeFetcher{respond: onePrivatePage}

	sum, err := NewSurveyor(store, f, testConfig(), newTestLogger()).Run(ctx, survey.ID)
	if err != nil {
		t.Fatal(err)
	}

	// private: 1 guest x 2 pages; entire: 2 guests x 1 page; shared: 1 guest x 1 page
	if got := len(f.Calls()); got != 5 {
		t.Errorf("fetches = %d; want 5: %v", got, f.Calls())
	}
	if sum.PagesFetched != 5 || sum.ListingsFound != 2 || sum.StubsSent != 2 {
		t.Errorf("summary = %+v", sum)
	}

	visits := store.PageVisits()
	if len(visits) != 5 {
		t.Errorf("page visits = %d; want 5", len(visits))
	}
	first := models.PageKey{SurveyID: survey.ID, RoomType: models.PrivateRoom, Neighborhood: "Monti", Guests: 1, Page: 1}
	if has, ok := visits[first]; !ok || !has {
		t.Errorf("first page fact = %v, %v; want visited with results", has, ok)
	}
	second := first
	second.Page = 2
	if has, ok := visits[second]; !ok || has {
		t.Errorf("second page fact = %v, %v; want visited empty", has, ok)
	}
	third := first
	third.Page = 3
	if _, ok := visits[third]; ok {
		t.Error("page after an empty page was visited")
	}

	listings, err := store.SurveyListings(ctx, survey.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 2 || listings[0].RoomType == nil || *listings[0].RoomType != models.PrivateRoom {
		t.Errorf("listings = %+v", listings)
	}
}

func TestSurveyorRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti", "Trastevere")

	if _, err := NewSurveyor(store, &fakeFetcher{respond: onePrivatePage}, testConfig(), newTestLogger()).Run(ctx, survey.ID); err != nil {
		t.Fatal(err)
	}
	visits := len(store.PageVisits())
	before, _ := store.SurveyListings(ctx, survey.ID)

	again := &fakeFetcher{respond: onePrivatePage}
	sum, err := NewSurveyor(store, again, testConfig(), newTestLogger()).Run(ctx, survey.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(again.Calls()); n != 0 {
		t.Errorf("re-run fetched %d pages: %v", n, again.Calls())
	}
	if sum.PagesSkipped != 2 {
		t.Errorf("PagesSkipped = %d; want the two pages with results", sum.PagesSkipped)
	}
	after, _ := store.SurveyListings(ctx, survey.ID)
	if len(store.PageVisits()) != visits || len(after) != len(before) {
		t.Errorf("re-run changed state: visits %d -> %d, listings %d -> %d",
			visits, len(store.PageVisits()), len(before), len(after))
	}
}

func TestSurveyorFetchFailureLeavesPageUnvisited(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")

	f := &fakeFetcher{respond: func(u string) ([]byte, error) {
		if privateFirstPage(u) {
			return nil, &FetchError{URL: u, Attempts: 5, Err: errors.New("connection reset")}
		}
		return []byte(searchPage()), nil
	}}
	sum, err := NewSurveyor(store, f, testConfig(), newTestLogger()).Run(ctx, survey.ID)
	if err != nil {
		t.Fatalf("a failed page should not end the survey: %v", err)
	}
	if sum.PagesFailed != 1 {
		t.Errorf("PagesFailed = %d; want 1", sum.PagesFailed)
	}

	key := models.PageKey{SurveyID: survey.ID, RoomType: models.PrivateRoom, Neighborhood: "Monti", Guests: 1, Page: 1}
	status, err := store.PageVisitStatus(ctx, key)
	if err != nil || status != models.Unvisited {
		t.Errorf("status = %v err = %v; want unvisited", status, err)
	}
	// the other three cells still ran
	if len(store.PageVisits()) != 3 {
		t.Errorf("page visits = %d; want 3", len(store.PageVisits()))
	}
}

func TestSurveyorParseFailureSkipsPage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")

	f := &fakeFetcher{respond: func(u string) ([]byte, error) {
		if privateFirstPage(u) {
			return []byte(""), nil
		}
		return []byte(searchPage()), nil
	}}
	sum, err := NewSurveyor(store, f, testConfig(), newTestLogger()).Run(ctx, survey.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.PagesFailed != 1 || len(store.PageVisits()) != 3 {
		t.Errorf("summary = %+v visits = %d", sum, len(store.PageVisits()))
	}
}

func TestSurveyorHonoursCancellation(t *testing.T) {
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFetcher{respond: onePrivatePage}
	_, err := NewSurveyor(store, f, testConfig(), newTestLogger()).Run(ctx, survey.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
	if len(f.Calls()) != 0 || len(store.PageVisits()) != 0 {
		t.Error("cancelled run did work")
	}
}

func TestSurveyorPreviewWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Trastevere", "Monti")

	f := &fakeFetcher{respond: func(u string) ([]byte, error) {
		if !strings.Contains(u, "neighborhoods%5B%5D=Monti") {
			t.Errorf("preview fetched %s; want the first neighborhood by name", u)
		}
		return onePrivatePage(u)
	}}
	var out bytes.Buffer
	n, err := NewSurveyor(store, f, testConfig(), newTestLogger()).Preview(ctx, survey.ID, &out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(f.Calls()) != 1 {
		t.Errorf("count = %d fetches = %d; want 2 and 1", n, len(f.Calls()))
	}
	if !strings.Contains(out.String(), "Private room\t1") {
		t.Errorf("output = %q", out.String())
	}
	if len(store.PageVisits()) != 0 {
		t.Error("preview recorded page visits")
	}
	if l, _ := store.SurveyListings(ctx, survey.ID); len(l) != 0 {
		t.Error("preview stored listings")
	}
}
