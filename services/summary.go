package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"airbnb-survey/models"
	"airbnb-survey/utils"
)

const topRatedCount = 5

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate computes the survey summary. Deleted listings count toward the
// totals only; price and rating statistics use live listings.
func (s *SummaryService) Generate(surveyID int64, listings []*models.Listing) *models.SurveyReport {
	report := &models.SurveyReport{
		SurveyID:       surveyID,
		ByRoomType:     make(map[models.RoomType]int),
		ByNeighborhood: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.Listing
	var rated []*models.Listing

	for _, l := range listings {
		if l.Deleted {
			report.Deleted++
			continue
		}
		if l.RoomType != nil {
			report.ByRoomType[*l.RoomType]++
		}
		if l.Neighborhood != nil && *l.Neighborhood != "" {
			report.ByNeighborhood[*l.Neighborhood]++
		}
		if l.Price != nil {
			report.Filled++
			if *l.Price > 0 {
				priced = append(priced, l)
			}
		} else {
			report.Unfilled++
		}
		if l.OverallSatisfaction != nil && *l.OverallSatisfaction > 0 {
			rated = append(rated, l)
		}
	}

	// Price stats (only listings with price > 0)
	if len(priced) > 0 {
		report.MostExpensive = priced[0]
		report.MinPrice = *priced[0].Price
		report.MaxPrice = *priced[0].Price
		var total float64
		for _, l := range priced {
			p := *l.Price
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	sort.SliceStable(rated, func(i, j int) bool {
		return *rated[i].OverallSatisfaction > *rated[j].OverallSatisfaction
	})
	if len(rated) > topRatedCount {
		report.TopRated = rated[:topRatedCount]
	} else {
		report.TopRated = rated
	}

	s.logger.Debug("[summary] Survey %d: %d listings, %d filled, %d deleted",
		surveyID, report.TotalListings, report.Filled, report.Deleted)
	return report
}

func (s *SummaryService) Print(w io.Writer, r *models.SurveyReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  SURVEY %d SUMMARY\033[0m\n", r.SurveyID)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Filled         : \033[1m%d\033[0m\n", r.Filled)
	fmt.Fprintf(w, "  Unfilled       : \033[1m%d\033[0m\n", r.Unfilled)
	fmt.Fprintf(w, "  Deleted        : \033[1m%d\033[0m\n", r.Deleted)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Room Type\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, rt := range models.RoomTypes {
		fmt.Fprintf(w, "  %-16s %d\n", rt, r.ByRoomType[rt])
	}
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (per night)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Room     : %d\n", r.MostExpensive.RoomID)
		fmt.Fprintf(w, "  Location : %s\n", deref(r.MostExpensive.Neighborhood))
		fmt.Fprintf(w, "  Price    : \033[1;31m%.2f/night\033[0m\n", *r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top %d Highest Rated Rooms\033[0m\n", topRatedCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated listings found\n")
	} else {
		for i, l := range r.TopRated {
			label := fmt.Sprintf("room %d, %s", l.RoomID, deref(l.Neighborhood))
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.2f ★\033[0m\n",
				i+1, truncate(label, 38), *l.OverallSatisfaction)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Neighborhood\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ByNeighborhood) == 0 {
		fmt.Fprintf(w, "  No neighborhood data\n")
	} else {
		type nbCount struct {
			name  string
			count int
		}
		var nbs []nbCount
		for name, cnt := range r.ByNeighborhood {
			nbs = append(nbs, nbCount{name, cnt})
		}
		sort.Slice(nbs, func(i, j int) bool {
			if nbs[i].count != nbs[j].count {
				return nbs[i].count > nbs[j].count
			}
			return nbs[i].name < nbs[j].name
		})
		for _, nc := range nbs {
			bar := strings.Repeat("█", min(nc.count, 40))
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(nc.name, 28), bar, nc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
