package airbnb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"airbnb-survey/models"
)

// ErrNoSearchArea means the landing page named no search location.
var ErrNoSearchArea = errors.New("no search area on page")

// ParseSearchArea reads the canonical area name and its neighborhood filter
// values from an area landing page.
func ParseSearchArea(markup []byte) (models.SearchArea, error) {
	doc, err := ParseDocument(markup)
	if err != nil {
		return models.SearchArea{}, err
	}

	var area models.SearchArea
	if v, ok := doc.query.Find(`input[name="location"]`).First().Attr("value"); ok {
		area.Name = strings.TrimSpace(v)
	}
	if area.Name == "" {
		return models.SearchArea{}, ErrNoSearchArea
	}

	seen := make(map[string]bool)
	doc.query.Find(`input[name="neighborhood"]`).Each(func(_ int, s *goquery.Selection) {
		v := strings.TrimSpace(s.AttrOr("value", ""))
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		area.Neighborhoods = append(area.Neighborhoods, v)
	})
	return area, nil
}

// FetchSearchArea downloads and parses the landing page of city.
func FetchSearchArea(ctx context.Context, f Fetcher, base, city string) (models.SearchArea, error) {
	u := SearchAreaURL(base, city)
	body, err := f.Fetch(ctx, u)
	if err != nil {
		return models.SearchArea{}, err
	}
	area, err := ParseSearchArea(body)
	if err != nil {
		return models.SearchArea{}, fmt.Errorf("search area %q: %w", city, err)
	}
	return area, nil
}
