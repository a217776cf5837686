package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"airbnb-survey/models"
)

func TestPrintListing(t *testing.T) {
	sid := int64(4)
	l := listing(77, models.PrivateRoom, "Monti", 85.5, 4.6)
	l.SurveyID = &sid

	var buf bytes.Buffer
	PrintListing(&buf, l)
	out := buf.String()

	tests := []string{
		"\troom_id: 77\n",
		"\troom_type: Private room\n",
		"\tneighborhood: Monti\n",
		"\tprice: 85.5\n",
		"\thost_id: -\n",
		"\tdeleted: false\n",
		"\tsurvey_id: 4\n",
	}
	for _, want := range tests {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSurveys(t *testing.T) {
	var buf bytes.Buffer
	PrintSurveys(&buf, []models.Survey{
		{ID: 1, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Description: "spring", SearchAreaID: 2},
	})
	if !strings.Contains(buf.String(), "2024-05-01") || !strings.Contains(buf.String(), "spring") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	PrintSurveys(&buf, nil)
	if !strings.Contains(buf.String(), "No surveys") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestPrintSearchArea(t *testing.T) {
	var buf bytes.Buffer
	PrintSearchArea(&buf, models.SearchArea{Name: "Rome", Neighborhoods: []string{"Monti", "Prati"}})
	if !strings.Contains(buf.String(), "\tMonti\n\tPrati\n") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	PrintSearchAreaInfo(&buf, []models.SearchAreaInfo{{ID: 2, Name: "Rome", NeighborhoodCount: 15, CityCount: 1}})
	if !strings.Contains(buf.String(), "neighborhoods: 15") {
		t.Errorf("info output = %q", buf.String())
	}
}
