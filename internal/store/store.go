// Package store persists feed records into SQLite and serves the bounded
// time-window queries consumed by the read API.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store provides append-only record insertion, bounded-window queries and
// age-based deletion over the positions and announcements tables.
type Store struct {
	db  *sql.DB
	log zerolog.Logger

	// Writes are serialized: SQLite has no concurrent writers, and the
	// mutex also keeps ingestion timestamps non-decreasing.
	mu         sync.Mutex
	lastIngest int64
}

// New creates a store on top of an open database connection.
func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "store").Logger(),
	}
}

// Init creates tables and indexes. Idempotent; called on every startup.
func (s *Store) Init() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operational_train_number TEXT NOT NULL,
			operational_train_departure_date TEXT NOT NULL,
			journey_plan_number TEXT,
			journey_plan_departure_date TEXT,
			advertised_train_number TEXT,
			latitude REAL,
			longitude REAL,
			sweref99tm_x REAL,
			sweref99tm_y REAL,
			timestamp TEXT NOT NULL,
			bearing REAL,
			speed REAL,
			ingested_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_train
			ON positions(operational_train_number, ingested_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_ingested
			ON positions(ingested_at DESC)`,
		`CREATE TABLE IF NOT EXISTS announcements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			activity_type TEXT,
			advertised_time_at_location TEXT,
			advertised_train_ident TEXT,
			from_location_name TEXT,
			from_location_priority INTEGER,
			to_location_name TEXT,
			to_location_priority INTEGER,
			location_signature TEXT,
			product_code TEXT,
			product_description TEXT,
			time_at_location_with_seconds TEXT,
			ingested_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_announcements_train
			ON announcements(advertised_train_ident, ingested_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_announcements_ingested
			ON announcements(ingested_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}

// ingestionTimestamp returns the next ingestion timestamp in epoch
// milliseconds, clamped so it never decreases across inserts.
// Callers must hold s.mu.
func (s *Store) ingestionTimestamp() int64 {
	now := time.Now().UnixMilli()
	if now < s.lastIngest {
		now = s.lastIngest
	}
	s.lastIngest = now
	return now
}

// InsertPosition appends one position row, assigning its ingestion timestamp.
func (s *Store) InsertPosition(p *Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.IngestedAt = s.ingestionTimestamp()

	_, err := s.db.Exec(`
		INSERT INTO positions (
			operational_train_number,
			operational_train_departure_date,
			journey_plan_number,
			journey_plan_departure_date,
			advertised_train_number,
			latitude,
			longitude,
			sweref99tm_x,
			sweref99tm_y,
			timestamp,
			bearing,
			speed,
			ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OperationalTrainNumber,
		p.OperationalTrainDepartureDate,
		p.JourneyPlanNumber,
		p.JourneyPlanDepartureDate,
		p.AdvertisedTrainNumber,
		p.Latitude,
		p.Longitude,
		p.Sweref99TMX,
		p.Sweref99TMY,
		p.Timestamp,
		p.Bearing,
		p.Speed,
		p.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

// InsertAnnouncement appends one announcement row, assigning its ingestion
// timestamp.
func (s *Store) InsertAnnouncement(a *Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.IngestedAt = s.ingestionTimestamp()

	_, err := s.db.Exec(`
		INSERT INTO announcements (
			activity_type,
			advertised_time_at_location,
			advertised_train_ident,
			from_location_name,
			from_location_priority,
			to_location_name,
			to_location_priority,
			location_signature,
			product_code,
			product_description,
			time_at_location_with_seconds,
			ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ActivityType,
		a.AdvertisedTimeAtLocation,
		a.AdvertisedTrainIdent,
		a.FromLocationName,
		a.FromLocationPriority,
		a.ToLocationName,
		a.ToLocationPriority,
		a.LocationSignature,
		a.ProductCode,
		a.ProductDescription,
		a.TimeAtLocationWithSeconds,
		a.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert announcement: %w", err)
	}
	return nil
}

// RecentPositions returns positions for a train ingested within the last
// hoursBack hours, most recent first.
func (s *Store) RecentPositions(trainNumber string, hoursBack int) ([]Position, error) {
	cutoff := time.Now().Add(-time.Duration(hoursBack) * time.Hour).UnixMilli()

	rows, err := s.db.Query(`
		SELECT id, operational_train_number, operational_train_departure_date,
			journey_plan_number, journey_plan_departure_date, advertised_train_number,
			latitude, longitude, sweref99tm_x, sweref99tm_y,
			timestamp, bearing, speed, ingested_at
		FROM positions
		WHERE operational_train_number = ? AND ingested_at > ?
		ORDER BY ingested_at DESC`,
		trainNumber, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// PositionsByLimit returns the most recent limit positions overall.
func (s *Store) PositionsByLimit(limit int) ([]Position, error) {
	rows, err := s.db.Query(`
		SELECT id, operational_train_number, operational_train_departure_date,
			journey_plan_number, journey_plan_departure_date, advertised_train_number,
			latitude, longitude, sweref99tm_x, sweref99tm_y,
			timestamp, bearing, speed, ingested_at
		FROM positions
		ORDER BY ingested_at DESC
		LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// RecentAnnouncements returns announcements for a train ingested within the
// last hoursBack hours, most recent first.
func (s *Store) RecentAnnouncements(trainIdent string, hoursBack int) ([]Announcement, error) {
	cutoff := time.Now().Add(-time.Duration(hoursBack) * time.Hour).UnixMilli()

	rows, err := s.db.Query(`
		SELECT id, activity_type, advertised_time_at_location, advertised_train_ident,
			from_location_name, from_location_priority,
			to_location_name, to_location_priority,
			location_signature, product_code, product_description,
			time_at_location_with_seconds, ingested_at
		FROM announcements
		WHERE advertised_train_ident = ? AND ingested_at > ?
		ORDER BY ingested_at DESC`,
		trainIdent, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	return scanAnnouncements(rows)
}

// AnnouncementsByLimit returns the most recent limit announcements overall.
func (s *Store) AnnouncementsByLimit(limit int) ([]Announcement, error) {
	rows, err := s.db.Query(`
		SELECT id, activity_type, advertised_time_at_location, advertised_train_ident,
			from_location_name, from_location_priority,
			to_location_name, to_location_priority,
			location_signature, product_code, product_description,
			time_at_location_with_seconds, ingested_at
		FROM announcements
		ORDER BY ingested_at DESC
		LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	return scanAnnouncements(rows)
}

// Cleanup deletes rows from both tables whose ingestion timestamp is older
// than hoursToKeep hours and returns per-table deleted counts.
func (s *Store) Cleanup(hoursToKeep int) (CleanupResult, error) {
	cutoff := time.Now().Add(-time.Duration(hoursToKeep) * time.Hour).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	var result CleanupResult

	res, err := s.db.Exec(`DELETE FROM positions WHERE ingested_at < ?`, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to delete stale positions: %w", err)
	}
	result.Positions, _ = res.RowsAffected()

	res, err = s.db.Exec(`DELETE FROM announcements WHERE ingested_at < ?`, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to delete stale announcements: %w", err)
	}
	result.Announcements, _ = res.RowsAffected()

	return result, nil
}

// Stats returns row counts and the most recent source-provided timestamp
// per table.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM positions`).Scan(&stats.Positions); err != nil {
		return nil, fmt.Errorf("failed to count positions: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM announcements`).Scan(&stats.Announcements); err != nil {
		return nil, fmt.Errorf("failed to count announcements: %w", err)
	}

	var lastPos, lastAnn sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(timestamp) FROM positions`).Scan(&lastPos); err != nil {
		return nil, fmt.Errorf("failed to query last position timestamp: %w", err)
	}
	if err := s.db.QueryRow(`SELECT MAX(time_at_location_with_seconds) FROM announcements`).Scan(&lastAnn); err != nil {
		return nil, fmt.Errorf("failed to query last announcement timestamp: %w", err)
	}
	if lastPos.Valid {
		stats.LastPosition = &lastPos.String
	}
	if lastAnn.Valid {
		stats.LastAnnouncement = &lastAnn.String
	}

	return stats, nil
}

func scanPositions(rows *sql.Rows) ([]Position, error) {
	positions := []Position{}
	for rows.Next() {
		var p Position
		err := rows.Scan(
			&p.ID,
			&p.OperationalTrainNumber,
			&p.OperationalTrainDepartureDate,
			&p.JourneyPlanNumber,
			&p.JourneyPlanDepartureDate,
			&p.AdvertisedTrainNumber,
			&p.Latitude,
			&p.Longitude,
			&p.Sweref99TMX,
			&p.Sweref99TMY,
			&p.Timestamp,
			&p.Bearing,
			&p.Speed,
			&p.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func scanAnnouncements(rows *sql.Rows) ([]Announcement, error) {
	announcements := []Announcement{}
	for rows.Next() {
		var a Announcement
		err := rows.Scan(
			&a.ID,
			&a.ActivityType,
			&a.AdvertisedTimeAtLocation,
			&a.AdvertisedTrainIdent,
			&a.FromLocationName,
			&a.FromLocationPriority,
			&a.ToLocationName,
			&a.ToLocationPriority,
			&a.LocationSignature,
			&a.ProductCode,
			&a.ProductDescription,
			&a.TimeAtLocationWithSeconds,
			&a.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		announcements = append(announcements, a)
	}
	return announcements, rows.Err()
}
