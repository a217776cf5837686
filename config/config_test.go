package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CRAWL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.FetchMaxAttempts != 5 {
		t.Errorf("FetchMaxAttempts = %d; want 5", cfg.FetchMaxAttempts)
	}
	if cfg.FetchTimeout() != 10*time.Second {
		t.Errorf("FetchTimeout = %v; want 10s", cfg.FetchTimeout())
	}
	if cfg.RequestJitter() != 3*time.Second {
		t.Errorf("RequestJitter = %v; want 3s", cfg.RequestJitter())
	}
	if cfg.SearchMaxPages != 25 || cfg.SearchMaxGuests != 16 || cfg.SharedMaxGuests != 4 {
		t.Errorf("search bounds = %d/%d/%d; want 25/16/4",
			cfg.SearchMaxPages, cfg.SearchMaxGuests, cfg.SharedMaxGuests)
	}
	if cfg.FillMaxRooms != 50000 {
		t.Errorf("FillMaxRooms = %d; want 50000", cfg.FillMaxRooms)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CRAWL_CONFIG", "")
	t.Setenv("SEARCH_MAX_PAGES", "3")
	t.Setenv("FETCH_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("POSTGRES_DB", "survey_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SearchMaxPages != 3 {
		t.Errorf("SearchMaxPages = %d; want 3", cfg.SearchMaxPages)
	}
	if cfg.FetchMaxAttempts != 5 {
		t.Errorf("invalid integer should fall back to default, got %d", cfg.FetchMaxAttempts)
	}
	want := "host=localhost port=5432 user=scraper password=scraper123 dbname=survey_test sslmode=disable"
	if cfg.DSN() != want {
		t.Errorf("DSN = %q; want %q", cfg.DSN(), want)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	overlay := []byte("base_url: http://127.0.0.1:8080\nsearch_max_pages: 7\nrequest_jitter_ms: 0\n")
	if err := os.WriteFile(path, overlay, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRAWL_CONFIG", path)
	t.Setenv("SEARCH_MAX_GUESTS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.SearchMaxPages != 7 {
		t.Errorf("SearchMaxPages = %d; want 7 from overlay", cfg.SearchMaxPages)
	}
	if cfg.RequestJitter() != 0 {
		t.Errorf("RequestJitter = %v; want 0 from overlay", cfg.RequestJitter())
	}
	if cfg.SearchMaxGuests != 8 {
		t.Errorf("SearchMaxGuests = %d; want env value 8 kept", cfg.SearchMaxGuests)
	}
}

func TestValidateRejectsUnknownFetchMode(t *testing.T) {
	t.Setenv("CRAWL_CONFIG", "")
	t.Setenv("FETCH_MODE", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown fetch mode")
	}
}
