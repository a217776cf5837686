package airbnb

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"airbnb-survey/models"
)

// searchResultSelector matches one listing card on a search results page.
const searchResultSelector = `div[class="listing"][data-id]`

// RoomURL returns the detail page address of a room.
func RoomURL(base string, roomID int64) string {
	return strings.TrimRight(base, "/") + "/rooms/" + strconv.FormatInt(roomID, 10)
}

// SearchAreaURL returns the landing search page of an area.
func SearchAreaURL(base, area string) string {
	return strings.TrimRight(base, "/") + "/s/" + url.PathEscape(area)
}

// SearchPageURL returns the address of one page of the search space.
func SearchPageURL(base, area string, key models.PageKey) string {
	return fmt.Sprintf("%s?guests=%d&%s=%s&%s=%s&page=%d",
		SearchAreaURL(base, area),
		key.Guests,
		queryEscape("neighborhoods[]"), queryEscape(key.Neighborhood),
		queryEscape("room_types[]"), queryEscape(string(key.RoomType)),
		key.Page,
	)
}

// queryEscape escapes s for a query component, spaces as %20.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ParseSearchPage returns the room ids listed on a search results page, in
// page order without repeats. A page with no listings yields an empty slice.
func ParseSearchPage(markup []byte) ([]int64, error) {
	doc, err := ParseDocument(markup)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	ids := make([]int64, 0)
	doc.query.Find(searchResultSelector).Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-id")
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	return ids, nil
}
