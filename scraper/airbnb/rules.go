package airbnb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"airbnb-survey/models"
)

// Structural page rules come first in every list; the description_details
// table and other legacy layouts follow as fallbacks.
const (
	summaryCol3   = "//div[@id='summary']//div[@class='panel-body']/div[@class='row'][2]/div[@class='col-9']//div[@class='col-3']"
	detailsTable  = "//table[@id='description_details']//td[text()[contains(.,'%s')]]/following-sibling::td"
	detailsColumn = "//div[@id='details-column']//div[text()[contains(.,'%s')]]/strong/text()"
	richToggle    = "//div[contains(@class,'rich-toggle')]/@data-address"
)

func meta(property string) Locator {
	return CSS{Selector: fmt.Sprintf(`meta[property*="airbedandbreakfast:%s"]`, property), Attr: "content"}
}

func legacyCell(label string) Locator {
	return XPath(fmt.Sprintf(detailsTable, label) + "/descendant::text()")
}

// ListingFields is the extraction schema for a room detail page.
var ListingFields = []FieldSpec{
	{
		Name: "country", Importance: Optional,
		Rules:  []Rule{{Locator: meta("country")}},
		Assign: func(l *models.Listing, v string) error { l.Country = &v; return nil },
	},
	{
		Name: "city", Importance: Expected,
		Rules:  []Rule{{Locator: meta("city")}},
		Assign: func(l *models.Listing, v string) error { l.City = &v; return nil },
	},
	{
		Name: "overall_satisfaction", Importance: Optional,
		Rules:  []Rule{{Locator: meta("rating")}},
		Assign: func(l *models.Listing, v string) error { return setFloat(&l.OverallSatisfaction, v) },
	},
	{
		Name: "latitude", Importance: Expected,
		Rules:  []Rule{{Locator: meta("location:latitude")}},
		Assign: func(l *models.Listing, v string) error { return setFloat(&l.Latitude, v) },
	},
	{
		Name: "longitude", Importance: Expected,
		Rules:  []Rule{{Locator: meta("location:longitude")}},
		Assign: func(l *models.Listing, v string) error { return setFloat(&l.Longitude, v) },
	},
	{
		Name: "host_id", Importance: Expected,
		Rules: []Rule{
			{Locator: XPath("//div[@id='host-profile']//a[contains(@href,'/users/show')]/@href"), Clean: lastPathSegment},
			{Locator: XPath("//div[@id='user']//a[contains(@href,'/users/show')]/@href"), Clean: lastPathSegment},
		},
		Assign: func(l *models.Listing, v string) error {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return err
			}
			l.HostID = &id
			return nil
		},
	},
	{
		Name: "room_type", Importance: Expected,
		Rules: []Rule{
			{Locator: XPath(summaryCol3 + "[1]/text()")},
			{Locator: XPath(fmt.Sprintf(detailsTable, "Room type:") + "/text()")},
		},
		Assign: func(l *models.Listing, v string) error {
			rt := models.RoomType(v)
			l.RoomType = &rt
			return nil
		},
	},
	{
		Name: "neighborhood", Importance: Expected,
		Rules: []Rule{
			{Locator: XPath(richToggle), Clean: parenthesized},
			{Locator: legacyCell("Neighborhood:")},
		},
		Assign: func(l *models.Listing, v string) error { l.Neighborhood = &v; return nil },
	},
	{
		Name: "address", Importance: Optional,
		Rules: []Rule{
			{Locator: XPath(richToggle), Clean: beforeComma},
			{Locator: XPath("//span[@id='display-address']/@data-location")},
		},
		Assign: func(l *models.Listing, v string) error { l.Address = &v; return nil },
	},
	{
		Name: "reviews", Importance: Optional,
		Rules: []Rule{
			{Locator: XPath("//div[@id='room']/div[@id='reviews']//h4/text()"), Clean: reviewCount},
			{Locator: XPath("//span[@itemprop='reviewCount']/text()"), Clean: reviewCount},
		},
		Assign: func(l *models.Listing, v string) error { return setInt(&l.Reviews, v) },
	},
	{
		Name: "accommodates", Importance: Expected,
		Rules: []Rule{
			{Locator: XPath(summaryCol3 + "[2]/text()"), Clean: leadingToken},
			{Locator: legacyCell("Accommodates:"), Clean: leadingToken},
		},
		Assign: func(l *models.Listing, v string) error { return setInt(&l.Accommodates, v) },
	},
	{
		Name: "bedrooms", Importance: Expected,
		Rules: []Rule{
			{Locator: XPath(summaryCol3 + "[3]/text()"), Clean: leadingToken},
			{Locator: legacyCell("Bedrooms:"), Clean: leadingToken},
		},
		Assign: func(l *models.Listing, v string) error { return setFloat(&l.Bedrooms, v) },
	},
	{
		Name: "bathrooms", Importance: Optional,
		Rules: []Rule{
			{Locator: XPath(fmt.Sprintf(detailsColumn, "Bathrooms:")), Clean: leadingToken},
			{Locator: legacyCell("Bathrooms:"), Clean: leadingToken},
		},
		Assign: func(l *models.Listing, v string) error { return setFloat(&l.Bathrooms, v) },
	},
	{
		Name: "minstay", Importance: Optional,
		Rules: []Rule{
			{Locator: XPath(fmt.Sprintf(detailsColumn, "Minimum Stay:")), Clean: stripNonDecimal},
			{Locator: legacyCell("Minimum Stay:"), Clean: stripNonDecimal},
		},
		Assign: func(l *models.Listing, v string) error { return setInt(&l.MinStay, v) },
	},
	{
		Name: "price", Importance: Optional,
		Rules: []Rule{
			{Locator: XPath("//div[@id='price_amount']/text()"), Clean: currencyAmount},
		},
		Assign: func(l *models.Listing, v string) error { return setFloat(&l.Price, v) },
	},
}

var nonDecimal = regexp.MustCompile(`[^\d.]+`)

func stripNonDecimal(s string) string {
	return nonDecimal.ReplaceAllString(s, "")
}

// currencyAmount keeps only the digits and decimal point of a price, wherever
// the currency symbol sits, so "$1,120" and "120 €" read as 1120 and 120.
func currencyAmount(s string) string {
	return strings.Trim(stripNonDecimal(s), ".")
}

// leadingToken keeps the text before any '+' and then before the first space,
// so "16+ guests" becomes "16".
func leadingToken(s string) string {
	s = strings.TrimSpace(strings.SplitN(s, "+", 2)[0])
	return strings.SplitN(s, " ", 2)[0]
}

func reviewCount(s string) string {
	s = leadingToken(s)
	if s == "No" {
		return "0"
	}
	return s
}

// lastPathSegment returns the trailing path segment of a link such as
// /users/show/1234?ref=x.
func lastPathSegment(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	return s[strings.LastIndex(s, "/")+1:]
}

func parenthesized(s string) string {
	open := strings.Index(s, "(")
	if open < 0 {
		return ""
	}
	end := strings.Index(s[open+1:], ")")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(s[open+1 : open+1+end])
}

func beforeComma(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func setFloat(dst **float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = &f
	return nil
}

func setInt(dst **int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return err
		}
		n = int(f)
	}
	*dst = &n
	return nil
}
