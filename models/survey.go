package models

import "time"

// Survey is one dated crawl run over a search area.
type Survey struct {
	ID           int64
	Date         time.Time
	Description  string
	SearchAreaID int64
}

// SearchArea is a named region and its neighborhoods, ordered by name.
type SearchArea struct {
	ID            int64
	Name          string
	Neighborhoods []string
}

// SearchAreaInfo summarises a stored search area.
type SearchAreaInfo struct {
	ID                int64
	Name              string
	NeighborhoodCount int
	CityCount         int
}

// PageKey addresses one cell of the search space.
type PageKey struct {
	SurveyID     int64
	RoomType     RoomType
	Neighborhood string
	Guests       int
	Page         int
}

// PageStatus is the ledger's answer for a PageKey.
type PageStatus int

const (
	Unvisited PageStatus = iota
	VisitedEmpty
	VisitedWithResults
)

func (s PageStatus) String() string {
	switch s {
	case VisitedEmpty:
		return "visited-empty"
	case VisitedWithResults:
		return "visited-with-results"
	default:
		return "unvisited"
	}
}

// SurveyReport holds the computed summary over one survey's listings.
type SurveyReport struct {
	SurveyID      int64
	TotalListings int
	Filled        int
	Deleted       int
	Unfilled      int
	ByRoomType    map[RoomType]int

	// ByNeighborhood counts live listings per neighborhood.
	ByNeighborhood map[string]int

	AveragePrice  float64
	MinPrice      float64
	MaxPrice      float64
	MostExpensive *Listing
	TopRated      []*Listing
}
