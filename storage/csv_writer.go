package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"airbnb-survey/models"
)

// legacyColumns is the positional room layout of older survey databases.
// Exports keep this order so existing analysis scripts still load them.
var legacyColumns = []string{
	"room_id", "host_id", "room_type", "country", "city", "neighborhood",
	"address", "reviews", "overall_satisfaction", "accommodates", "bedrooms",
	"bathrooms", "price", "deleted", "minstay", "last_modified", "latitude",
	"longitude", "survey_id",
}

// CSVWriter writes listings to a CSV file in the legacy column order.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(legacyColumns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteListings appends one row per listing. Null fields are empty cells.
func (c *CSVWriter) WriteListings(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(legacyRow(l)); err != nil {
			return fmt.Errorf("csv: write row %d: %w", l.RoomID, err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func legacyRow(l *models.Listing) []string {
	roomType := ""
	if l.RoomType != nil {
		roomType = string(*l.RoomType)
	}
	deleted := "0"
	if l.Deleted {
		deleted = "1"
	}
	modified := ""
	if !l.LastModified.IsZero() {
		modified = l.LastModified.Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(l.RoomID, 10),
		fmtInt64(l.HostID),
		roomType,
		fmtString(l.Country),
		fmtString(l.City),
		fmtString(l.Neighborhood),
		fmtString(l.Address),
		fmtInt(l.Reviews),
		fmtFloat(l.OverallSatisfaction),
		fmtInt(l.Accommodates),
		fmtFloat(l.Bedrooms),
		fmtFloat(l.Bathrooms),
		fmtFloat(l.Price),
		deleted,
		fmtInt(l.MinStay),
		modified,
		fmtFloat(l.Latitude),
		fmtFloat(l.Longitude),
		fmtInt64(l.SurveyID),
	}
}

func fmtInt64(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func fmtInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func fmtFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func fmtString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
