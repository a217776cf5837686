package storage

import (
	"context"
	"errors"

	"airbnb-survey/models"
)

var (
	// ErrConflict is a duplicate key on a strict insert.
	ErrConflict = errors.New("storage: duplicate listing")
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

// Gateway is what the crawl engine needs from the record store.
type Gateway interface {
	// LookupUnfilledListing returns one arbitrary listing with no price that is
	// not deleted. ok is false when none remain.
	LookupUnfilledListing(ctx context.Context) (ref models.ListingRef, ok bool, err error)
	// UpsertListing stores l under mode. A Deleted listing only flags the
	// existing row. Returns ErrConflict on a duplicate key.
	UpsertListing(ctx context.Context, l *models.Listing, mode models.UpsertMode) error
	PageVisitStatus(ctx context.Context, key models.PageKey) (models.PageStatus, error)
	// RecordPageVisit stores the fact for key. An existing fact is kept.
	RecordPageVisit(ctx context.Context, key models.PageKey, hasResults bool) error
	ListNeighborhoods(ctx context.Context, searchAreaID int64) ([]string, error)
	SurveyAreaInfo(ctx context.Context, surveyID int64) (searchAreaID int64, name string, err error)
}

// Admin covers the reference-data and reporting operations used by the CLI.
type Admin interface {
	// AddSearchArea inserts the area, its city alias and neighborhoods.
	// created is false when an area of that name already exists.
	AddSearchArea(ctx context.Context, area models.SearchArea, city string) (id int64, created bool, err error)
	FindSearchAreas(ctx context.Context, name string) ([]models.SearchAreaInfo, error)
	AddSurvey(ctx context.Context, searchArea, description string) (*models.Survey, error)
	ListSurveys(ctx context.Context) ([]models.Survey, error)
	GetListing(ctx context.Context, roomID int64) (*models.Listing, error)
	SurveyListings(ctx context.Context, surveyID int64) ([]*models.Listing, error)
}

// Store is a complete record store.
type Store interface {
	Gateway
	Admin
	Close() error
}

// ListingExporter is the interface for writing listings to a flat file.
type ListingExporter interface {
	WriteListings(listings []*models.Listing) error
	Close() error
}
