package models

import "time"

// RoomType is the catalog's room category, spelled the way the search
// endpoint expects it in the room_types[] parameter.
type RoomType string

const (
	PrivateRoom RoomType = "Private room"
	EntireHome  RoomType = "Entire home/apt"
	SharedRoom  RoomType = "Shared room"
)

// RoomTypes is the enumeration order used by a survey crawl.
var RoomTypes = []RoomType{PrivateRoom, EntireHome, SharedRoom}

// IsShared reports whether guests share the unit with others.
func (rt RoomType) IsShared() bool {
	return rt == PrivateRoom || rt == SharedRoom
}

// Listing is one room record. Every attribute other than RoomID is nullable:
// a stub from a search page carries only RoomID, RoomType and SurveyID.
type Listing struct {
	RoomID              int64
	HostID              *int64
	RoomType            *RoomType
	Country             *string
	City                *string
	Neighborhood        *string
	Address             *string
	Reviews             *int
	OverallSatisfaction *float64
	Accommodates        *int
	Bedrooms            *float64
	Bathrooms           *float64
	Price               *float64
	MinStay             *int
	Latitude            *float64
	Longitude           *float64
	Deleted             bool
	SurveyID            *int64
	LastModified        time.Time
}

// NonNullCount counts the populated content fields: the room id plus every
// non-nil attribute. The deleted flag and the survey id are bookkeeping and
// are not counted.
func (l *Listing) NonNullCount() int {
	n := 1
	for _, set := range []bool{
		l.HostID != nil,
		l.RoomType != nil,
		l.Country != nil,
		l.City != nil,
		l.Neighborhood != nil,
		l.Address != nil,
		l.Reviews != nil,
		l.OverallSatisfaction != nil,
		l.Accommodates != nil,
		l.Bedrooms != nil,
		l.Bathrooms != nil,
		l.Price != nil,
		l.MinStay != nil,
		l.Latitude != nil,
		l.Longitude != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// NewStub builds the minimal record created from a search results page.
func NewStub(roomID int64, roomType RoomType, surveyID int64) *Listing {
	rt := roomType
	sid := surveyID
	return &Listing{RoomID: roomID, RoomType: &rt, SurveyID: &sid}
}

// ListingRef identifies a listing picked for filling.
type ListingRef struct {
	RoomID   int64
	SurveyID *int64
}

// UpsertMode selects how an incoming record treats an existing row.
type UpsertMode int

const (
	// InsertOrSkip leaves an existing row untouched.
	InsertOrSkip UpsertMode = iota
	// InsertOrReplace overwrites every column of an existing row.
	InsertOrReplace
)

func (m UpsertMode) String() string {
	if m == InsertOrReplace {
		return "insert-or-replace"
	}
	return "insert-or-skip"
}
