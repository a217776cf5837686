package airbnb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"airbnb-survey/models"
	"airbnb-survey/storage"
)

func seedStubs(t *testing.T, store *storage.MemoryStore, surveyID int64, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		if err := store.UpsertListing(context.Background(), models.NewStub(id, models.EntireHome, surveyID), models.InsertOrSkip); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFillerCompletesStubs(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")
	seedStubs(t, store, survey.ID, 1, 2)

	f := &fakeFetcher{respond: func(u string) ([]byte, error) {
		if strings.HasSuffix(u, "/rooms/2") {
			return []byte("<html><body>This listing is no longer available</body></html>"), nil
		}
		return []byte(roomPage), nil
	}}
	sum, err := NewFiller(store, f, testConfig(), newTestLogger()).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Processed != 2 || sum.Filled != 1 || sum.Deleted != 1 {
		t.Errorf("summary = %+v", sum)
	}

	got, err := store.GetListing(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Price == nil || *got.Price != 1120 || got.City == nil || *got.City != "Rome" {
		t.Errorf("room 1 not filled: %+v", got)
	}
	if got.SurveyID == nil || *got.SurveyID != survey.ID {
		t.Errorf("survey id lost: %v", got.SurveyID)
	}

	gone, err := store.GetListing(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !gone.Deleted || gone.RoomType == nil {
		t.Errorf("room 2 should be flagged deleted in place: %+v", gone)
	}
	if _, ok, _ := store.LookupUnfilledListing(ctx); ok {
		t.Error("unfilled listings remain")
	}
}

func TestFillerRespectsMaxRooms(t *testing.T) {
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")
	seedStubs(t, store, survey.ID, 1, 2, 3)

	cfg := testConfig()
	cfg.FillMaxRooms = 2
	f := &fakeFetcher{respond: func(string) ([]byte, error) { return []byte(roomPage), nil }}
	sum, err := NewFiller(store, f, cfg, newTestLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Processed != 2 || len(f.Calls()) != 2 {
		t.Errorf("processed %d with %d fetches; want 2", sum.Processed, len(f.Calls()))
	}
}

func TestFillerStopsOnRepeatedPicks(t *testing.T) {
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")
	seedStubs(t, store, survey.ID, 1)

	noPrice := strings.Replace(roomPage, `<div id="price_amount">$1,120</div>`, "", 1)
	f := &fakeFetcher{respond: func(string) ([]byte, error) { return []byte(noPrice), nil }}
	sum, err := NewFiller(store, f, testConfig(), newTestLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Processed != maxRepeatPicks {
		t.Errorf("processed = %d; want %d", sum.Processed, maxRepeatPicks)
	}
}

func TestFillerGivesUpAfterConsecutiveFailures(t *testing.T) {
	store := storage.NewMemoryStore()
	survey := seedSurvey(t, store, "Monti")
	seedStubs(t, store, survey.ID, 1, 2, 3)

	f := &fakeFetcher{respond: func(u string) ([]byte, error) {
		return nil, &FetchError{URL: u, Attempts: 5, Err: errors.New("timeout")}
	}}
	sum, err := NewFiller(store, f, testConfig(), newTestLogger()).Run(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v; want wrapped FetchError", err)
	}
	if sum.Failed != maxConsecutiveFailures {
		t.Errorf("failed = %d; want %d", sum.Failed, maxConsecutiveFailures)
	}
	if _, ok, _ := store.LookupUnfilledListing(context.Background()); !ok {
		t.Error("failed fetches should leave listings unfilled")
	}
}
