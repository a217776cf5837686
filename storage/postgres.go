package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"airbnb-survey/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PostgresStore persists surveys, listings and page visits to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// Migrate creates every table and index if missing.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS search_area (
			search_area_id SERIAL PRIMARY KEY,
			name           TEXT UNIQUE NOT NULL
		);

		CREATE TABLE IF NOT EXISTS city (
			city_id        SERIAL PRIMARY KEY,
			name           TEXT NOT NULL,
			search_area_id INTEGER NOT NULL REFERENCES search_area(search_area_id),
			UNIQUE (name, search_area_id)
		);

		CREATE TABLE IF NOT EXISTS neighborhood (
			neighborhood_id SERIAL PRIMARY KEY,
			name            TEXT NOT NULL,
			search_area_id  INTEGER NOT NULL REFERENCES search_area(search_area_id),
			UNIQUE (search_area_id, name)
		);

		CREATE TABLE IF NOT EXISTS survey (
			survey_id          SERIAL PRIMARY KEY,
			survey_date        DATE NOT NULL DEFAULT CURRENT_DATE,
			survey_description TEXT NOT NULL DEFAULT '',
			search_area_id     INTEGER NOT NULL REFERENCES search_area(search_area_id)
		);

		CREATE TABLE IF NOT EXISTS room (
			room_id              BIGINT PRIMARY KEY,
			host_id              BIGINT,
			room_type            TEXT,
			country              TEXT,
			city                 TEXT,
			neighborhood         TEXT,
			address              TEXT,
			reviews              INTEGER,
			overall_satisfaction DOUBLE PRECISION,
			accommodates         INTEGER,
			bedrooms             DOUBLE PRECISION,
			bathrooms            DOUBLE PRECISION,
			price                NUMERIC(10,2),
			deleted              BOOLEAN NOT NULL DEFAULT FALSE,
			minstay              INTEGER,
			last_modified        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			latitude             DOUBLE PRECISION,
			longitude            DOUBLE PRECISION,
			survey_id            INTEGER REFERENCES survey(survey_id)
		);

		CREATE TABLE IF NOT EXISTS survey_search_page (
			survey_id       INTEGER NOT NULL REFERENCES survey(survey_id),
			room_type       TEXT    NOT NULL,
			neighborhood_id INTEGER NOT NULL REFERENCES neighborhood(neighborhood_id),
			guests          INTEGER NOT NULL,
			page_number     INTEGER NOT NULL,
			has_rooms       BOOLEAN NOT NULL,
			PRIMARY KEY (survey_id, room_type, neighborhood_id, guests, page_number)
		);

		CREATE INDEX IF NOT EXISTS idx_room_survey   ON room(survey_id);
		CREATE INDEX IF NOT EXISTS idx_room_unfilled ON room(room_id) WHERE price IS NULL AND NOT deleted;
	`)
	return err
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func (ps *PostgresStore) LookupUnfilledListing(ctx context.Context) (models.ListingRef, bool, error) {
	var (
		ref      models.ListingRef
		surveyID sql.NullInt64
	)
	err := ps.db.QueryRowContext(ctx, `
		SELECT room_id, survey_id
		FROM room
		WHERE price IS NULL AND NOT deleted
		ORDER BY random()
		LIMIT 1
	`).Scan(&ref.RoomID, &surveyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ListingRef{}, false, nil
	}
	if err != nil {
		return models.ListingRef{}, false, fmt.Errorf("postgres: lookup unfilled room: %w", err)
	}
	ref.SurveyID = int64Ptr(surveyID)
	return ref, true, nil
}

const insertRoomSQL = `
	INSERT INTO room (
		room_id, host_id, room_type, country, city, neighborhood, address,
		reviews, overall_satisfaction, accommodates, bedrooms, bathrooms,
		price, deleted, minstay, latitude, longitude, survey_id
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

const replaceRoomSQL = insertRoomSQL + `
	ON CONFLICT (room_id) DO UPDATE SET
		host_id              = EXCLUDED.host_id,
		room_type            = EXCLUDED.room_type,
		country              = EXCLUDED.country,
		city                 = EXCLUDED.city,
		neighborhood         = EXCLUDED.neighborhood,
		address              = EXCLUDED.address,
		reviews              = EXCLUDED.reviews,
		overall_satisfaction = EXCLUDED.overall_satisfaction,
		accommodates         = EXCLUDED.accommodates,
		bedrooms             = EXCLUDED.bedrooms,
		bathrooms            = EXCLUDED.bathrooms,
		price                = EXCLUDED.price,
		deleted              = EXCLUDED.deleted,
		minstay              = EXCLUDED.minstay,
		latitude             = EXCLUDED.latitude,
		longitude            = EXCLUDED.longitude,
		survey_id            = EXCLUDED.survey_id,
		last_modified        = NOW()`

// UpsertListing writes l. Insert-or-skip is a strict INSERT whose duplicate
// key surfaces as ErrConflict; insert-or-replace overwrites every column.
func (ps *PostgresStore) UpsertListing(ctx context.Context, l *models.Listing, mode models.UpsertMode) error {
	if l.Deleted {
		_, err := ps.db.ExecContext(ctx,
			`UPDATE room SET deleted = TRUE, last_modified = NOW() WHERE room_id = $1`, l.RoomID)
		if err != nil {
			return fmt.Errorf("postgres: flag room %d deleted: %w", l.RoomID, err)
		}
		return nil
	}

	query := insertRoomSQL
	if mode == models.InsertOrReplace {
		query = replaceRoomSQL
	}

	var roomType sql.NullString
	if l.RoomType != nil {
		roomType = sql.NullString{String: string(*l.RoomType), Valid: true}
	}

	_, err := ps.db.ExecContext(ctx, query,
		l.RoomID, nullInt64(l.HostID), roomType,
		nullString(l.Country), nullString(l.City), nullString(l.Neighborhood), nullString(l.Address),
		nullInt(l.Reviews), nullFloat(l.OverallSatisfaction), nullInt(l.Accommodates),
		nullFloat(l.Bedrooms), nullFloat(l.Bathrooms), nullFloat(l.Price),
		l.Deleted, nullInt(l.MinStay), nullFloat(l.Latitude), nullFloat(l.Longitude),
		nullInt64(l.SurveyID),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("postgres: room %d: %w", l.RoomID, ErrConflict)
		}
		return fmt.Errorf("postgres: save room %d (%s): %w", l.RoomID, mode, err)
	}
	return nil
}

func (ps *PostgresStore) PageVisitStatus(ctx context.Context, key models.PageKey) (models.PageStatus, error) {
	var hasRooms bool
	err := ps.db.QueryRowContext(ctx, `
		SELECT ssp.has_rooms
		FROM survey_search_page ssp
		JOIN survey s        ON s.survey_id = ssp.survey_id
		JOIN neighborhood nb ON nb.neighborhood_id = ssp.neighborhood_id
		                    AND nb.search_area_id = s.search_area_id
		WHERE ssp.survey_id = $1
		  AND ssp.room_type = $2
		  AND nb.name = $3
		  AND ssp.guests = $4
		  AND ssp.page_number = $5
	`, key.SurveyID, string(key.RoomType), key.Neighborhood, key.Guests, key.Page).Scan(&hasRooms)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Unvisited, nil
	}
	if err != nil {
		return models.Unvisited, fmt.Errorf("postgres: page visit status: %w", err)
	}
	if hasRooms {
		return models.VisitedWithResults, nil
	}
	return models.VisitedEmpty, nil
}

func (ps *PostgresStore) RecordPageVisit(ctx context.Context, key models.PageKey, hasResults bool) error {
	res, err := ps.db.ExecContext(ctx, `
		INSERT INTO survey_search_page (survey_id, room_type, neighborhood_id, guests, page_number, has_rooms)
		SELECT s.survey_id, $2::text, nb.neighborhood_id, $4::int, $5::int, $6::boolean
		FROM survey s
		JOIN neighborhood nb ON nb.search_area_id = s.search_area_id
		WHERE s.survey_id = $1 AND nb.name = $3
		ON CONFLICT DO NOTHING
	`, key.SurveyID, string(key.RoomType), key.Neighborhood, key.Guests, key.Page, hasResults)
	if err != nil {
		return fmt.Errorf("postgres: save survey search page: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Nothing inserted: either the fact already exists or the key is unknown.
	status, err := ps.PageVisitStatus(ctx, key)
	if err != nil {
		return err
	}
	if status == models.Unvisited {
		return fmt.Errorf("postgres: survey %d has no neighborhood %q: %w", key.SurveyID, key.Neighborhood, ErrNotFound)
	}
	return nil
}

func (ps *PostgresStore) ListNeighborhoods(ctx context.Context, searchAreaID int64) ([]string, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT name FROM neighborhood WHERE search_area_id = $1 ORDER BY name
	`, searchAreaID)
	if err != nil {
		return nil, fmt.Errorf("postgres: neighborhoods for area %d: %w", searchAreaID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres: scan neighborhood: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) SurveyAreaInfo(ctx context.Context, surveyID int64) (int64, string, error) {
	var (
		id   int64
		name string
	)
	err := ps.db.QueryRowContext(ctx, `
		SELECT sa.search_area_id, sa.name
		FROM search_area sa
		JOIN survey s ON sa.search_area_id = s.search_area_id
		WHERE s.survey_id = $1
	`, surveyID).Scan(&id, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("postgres: no search area for survey %d: %w", surveyID, ErrNotFound)
	}
	if err != nil {
		return 0, "", fmt.Errorf("postgres: search area for survey %d: %w", surveyID, err)
	}
	return id, name, nil
}

func (ps *PostgresStore) AddSearchArea(ctx context.Context, area models.SearchArea, city string) (int64, bool, error) {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("postgres: begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT search_area_id FROM search_area WHERE name = $1`, area.Name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("postgres: check search area %q: %w", area.Name, err)
	}

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO search_area (name) VALUES ($1) RETURNING search_area_id`, area.Name).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("postgres: insert search area %q: %w", area.Name, err)
	}
	if city != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO city (name, search_area_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, city, id); err != nil {
			return 0, false, fmt.Errorf("postgres: insert city %q: %w", city, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO neighborhood (name, search_area_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return 0, false, fmt.Errorf("postgres: prepare neighborhood insert: %w", err)
	}
	defer stmt.Close()
	for _, nb := range area.Neighborhoods {
		if _, err := stmt.ExecContext(ctx, nb, id); err != nil {
			return 0, false, fmt.Errorf("postgres: insert neighborhood %q: %w", nb, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("postgres: commit transaction: %w", err)
	}
	return id, true, nil
}

func (ps *PostgresStore) FindSearchAreas(ctx context.Context, name string) ([]models.SearchAreaInfo, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT sa.search_area_id, sa.name,
		       (SELECT count(*) FROM neighborhood nb WHERE nb.search_area_id = sa.search_area_id),
		       (SELECT count(*) FROM city c WHERE c.search_area_id = sa.search_area_id)
		FROM search_area sa
		WHERE sa.name = $1
		ORDER BY sa.search_area_id
	`, name)
	if err != nil {
		return nil, fmt.Errorf("postgres: find search area %q: %w", name, err)
	}
	defer rows.Close()

	var out []models.SearchAreaInfo
	for rows.Next() {
		var info models.SearchAreaInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.NeighborhoodCount, &info.CityCount); err != nil {
			return nil, fmt.Errorf("postgres: scan search area: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) AddSurvey(ctx context.Context, searchArea, description string) (*models.Survey, error) {
	s := &models.Survey{}
	err := ps.db.QueryRowContext(ctx, `
		INSERT INTO survey (survey_description, search_area_id)
		SELECT $2::text, search_area_id FROM search_area WHERE name = $1
		RETURNING survey_id, survey_date, survey_description, search_area_id
	`, searchArea, description).Scan(&s.ID, &s.Date, &s.Description, &s.SearchAreaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: search area %q: %w", searchArea, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: add survey for %q: %w", searchArea, err)
	}
	return s, nil
}

func (ps *PostgresStore) ListSurveys(ctx context.Context) ([]models.Survey, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT survey_id, survey_date, survey_description, search_area_id
		FROM survey
		ORDER BY survey_id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list surveys: %w", err)
	}
	defer rows.Close()

	var out []models.Survey
	for rows.Next() {
		var s models.Survey
		if err := rows.Scan(&s.ID, &s.Date, &s.Description, &s.SearchAreaID); err != nil {
			return nil, fmt.Errorf("postgres: scan survey: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const selectRoomSQL = `
	SELECT room_id, host_id, room_type, country, city, neighborhood, address,
	       reviews, overall_satisfaction, accommodates, bedrooms, bathrooms,
	       price, deleted, minstay, last_modified, latitude, longitude, survey_id
	FROM room`

func (ps *PostgresStore) GetListing(ctx context.Context, roomID int64) (*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, selectRoomSQL+` WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get room %d: %w", roomID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: room %d: %w", roomID, ErrNotFound)
	}
	return scanListing(rows)
}

func (ps *PostgresStore) SurveyListings(ctx context.Context, surveyID int64) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, selectRoomSQL+` WHERE survey_id = $1 ORDER BY room_id`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: rooms for survey %d: %w", surveyID, err)
	}
	defer rows.Close()

	var out []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanListing(rows *sql.Rows) (*models.Listing, error) {
	var (
		l                                            models.Listing
		hostID, surveyID                             sql.NullInt64
		roomType, country, city, nb, address         sql.NullString
		reviews, accommodates, minstay               sql.NullInt64
		rating, bedrooms, bathrooms, price, lat, lng sql.NullFloat64
	)
	if err := rows.Scan(
		&l.RoomID, &hostID, &roomType, &country, &city, &nb, &address,
		&reviews, &rating, &accommodates, &bedrooms, &bathrooms,
		&price, &l.Deleted, &minstay, &l.LastModified, &lat, &lng, &surveyID,
	); err != nil {
		return nil, fmt.Errorf("postgres: scan room: %w", err)
	}

	l.HostID = int64Ptr(hostID)
	if roomType.Valid {
		rt := models.RoomType(roomType.String)
		l.RoomType = &rt
	}
	l.Country = stringPtr(country)
	l.City = stringPtr(city)
	l.Neighborhood = stringPtr(nb)
	l.Address = stringPtr(address)
	l.Reviews = intPtr(reviews)
	l.OverallSatisfaction = floatPtr(rating)
	l.Accommodates = intPtr(accommodates)
	l.Bedrooms = floatPtr(bedrooms)
	l.Bathrooms = floatPtr(bathrooms)
	l.Price = floatPtr(price)
	l.MinStay = intPtr(minstay)
	l.Latitude = floatPtr(lat)
	l.Longitude = floatPtr(lng)
	l.SurveyID = int64Ptr(surveyID)
	return &l, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
