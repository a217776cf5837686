package services

import (
	"fmt"
	"io"
	"strconv"

	"airbnb-survey/models"
)

// PrintListing writes one extracted record field by field.
func PrintListing(w io.Writer, l *models.Listing) {
	roomType := "-"
	if l.RoomType != nil {
		roomType = string(*l.RoomType)
	}
	surveyID := "-"
	if l.SurveyID != nil {
		surveyID = strconv.FormatInt(*l.SurveyID, 10)
	}

	fmt.Fprintln(w, "Room info:")
	fmt.Fprintf(w, "\troom_id: %d\n", l.RoomID)
	fmt.Fprintf(w, "\thost_id: %s\n", fmtInt64(l.HostID))
	fmt.Fprintf(w, "\troom_type: %s\n", roomType)
	fmt.Fprintf(w, "\tcountry: %s\n", deref(l.Country))
	fmt.Fprintf(w, "\tcity: %s\n", deref(l.City))
	fmt.Fprintf(w, "\tneighborhood: %s\n", deref(l.Neighborhood))
	fmt.Fprintf(w, "\taddress: %s\n", deref(l.Address))
	fmt.Fprintf(w, "\treviews: %s\n", fmtInt(l.Reviews))
	fmt.Fprintf(w, "\toverall_satisfaction: %s\n", fmtFloat(l.OverallSatisfaction))
	fmt.Fprintf(w, "\taccommodates: %s\n", fmtInt(l.Accommodates))
	fmt.Fprintf(w, "\tbedrooms: %s\n", fmtFloat(l.Bedrooms))
	fmt.Fprintf(w, "\tbathrooms: %s\n", fmtFloat(l.Bathrooms))
	fmt.Fprintf(w, "\tprice: %s\n", fmtFloat(l.Price))
	fmt.Fprintf(w, "\tdeleted: %t\n", l.Deleted)
	fmt.Fprintf(w, "\tminstay: %s\n", fmtInt(l.MinStay))
	fmt.Fprintf(w, "\tlatitude: %s\n", fmtFloat(l.Latitude))
	fmt.Fprintf(w, "\tlongitude: %s\n", fmtFloat(l.Longitude))
	fmt.Fprintf(w, "\tsurvey_id: %s\n", surveyID)
	if !l.LastModified.IsZero() {
		fmt.Fprintf(w, "\tlast_modified: %s\n", l.LastModified.Format("2006-01-02 15:04:05"))
	}
}

// PrintSurveys writes one line per survey.
func PrintSurveys(w io.Writer, surveys []models.Survey) {
	if len(surveys) == 0 {
		fmt.Fprintln(w, "No surveys")
		return
	}
	fmt.Fprintf(w, "%-6s %-10s %-8s %s\n", "id", "date", "area", "description")
	for _, s := range surveys {
		fmt.Fprintf(w, "%-6d %-10s %-8d %s\n", s.ID, s.Date.Format("2006-01-02"), s.SearchAreaID, s.Description)
	}
}

// PrintSearchArea writes an area and its neighborhoods as found on the site.
func PrintSearchArea(w io.Writer, a models.SearchArea) {
	fmt.Fprintf(w, "\n%s\n", a.Name)
	fmt.Fprintln(w, "Neighborhoods:")
	for _, nb := range a.Neighborhoods {
		fmt.Fprintf(w, "\t%s\n", nb)
	}
}

// PrintSearchAreaInfo writes the stored summary of matching areas.
func PrintSearchAreaInfo(w io.Writer, infos []models.SearchAreaInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No matching search area")
		return
	}
	for _, a := range infos {
		fmt.Fprintf(w, "Search area %d: %s\n", a.ID, a.Name)
		fmt.Fprintf(w, "\tneighborhoods: %d\n", a.NeighborhoodCount)
		fmt.Fprintf(w, "\tcities: %d\n", a.CityCount)
	}
}

func fmtInt64(p *int64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatInt(*p, 10)
}

func fmtInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func fmtFloat(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
