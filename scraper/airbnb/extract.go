package airbnb

import (
	"airbnb-survey/models"
	"airbnb-survey/utils"
)

// minPopulatedFields is the fewest non-null content fields a live room page
// yields. Anything sparser is taken to be a removed listing.
const minPopulatedFields = 6

// Extractor turns a room detail page into a Listing.
type Extractor struct {
	fields []FieldSpec
	logger *utils.Logger
}

// NewExtractor creates an Extractor using the ListingFields schema.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{fields: ListingFields, logger: logger}
}

// Extract reads every field of the schema from markup. Missing fields stay
// nil. When fewer than minPopulatedFields are populated the result carries
// only the room id and survey id and is marked Deleted.
func (e *Extractor) Extract(markup []byte, roomID int64, surveyID *int64) (*models.Listing, error) {
	doc, err := ParseDocument(markup)
	if err != nil {
		return nil, err
	}

	l := &models.Listing{RoomID: roomID, SurveyID: surveyID}
	for _, f := range e.fields {
		v, loc, ok := f.lookup(doc, func(v string) error {
			err := f.Assign(l, v)
			if err != nil {
				e.logger.Debug("[extract] room %d: %s value %q rejected: %v", roomID, f.Name, v, err)
			}
			return err
		})
		if ok {
			e.logger.Debug("[extract] room %d: %s = %q via %s", roomID, f.Name, v, loc)
			continue
		}
		if f.Importance == Expected {
			e.logger.Warn("[extract] No %s found for room %d", f.Name, roomID)
		} else {
			e.logger.Info("[extract] No %s found for room %d", f.Name, roomID)
		}
	}

	if n := l.NonNullCount(); n < minPopulatedFields {
		e.logger.Warn("[extract] Room %d has probably been deleted (%d fields)", roomID, n)
		return &models.Listing{RoomID: roomID, SurveyID: surveyID, Deleted: true}, nil
	}
	return l, nil
}
