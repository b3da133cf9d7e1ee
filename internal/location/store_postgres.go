package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "streetwatch/pkg/domain"
	"streetwatch/pkg/platform/sentinel"
)

// PostgresStore persists locations in PostgreSQL. The locations table
// carries a UNIQUE (region, sub_region) constraint; FindOrCreate leans on
// it to stay race-safe without an explicit lock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindOrCreate(ctx context.Context, loc *Location) (*Location, error) {
	insert := `
		INSERT INTO locations (id, region, sub_region, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region, sub_region) DO NOTHING
	`
	newID := uuid.New()
	if _, err := s.db.ExecContext(ctx, insert, newID, loc.Region, loc.SubRegion, loc.CreatedAt); err != nil {
		return nil, fmt.Errorf("find-or-create location: %w", err)
	}

	// Reselect rather than RETURNING: on conflict the insert touches no row,
	// so the winner's row has to be read back either way.
	query := `
		SELECT id, region, sub_region, created_at
		FROM locations
		WHERE region = $1 AND sub_region = $2
	`
	row := s.db.QueryRowContext(ctx, query, loc.Region, loc.SubRegion)
	return scanLocation(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, locationID id.LocationID) (*Location, error) {
	query := `
		SELECT id, region, sub_region, created_at
		FROM locations
		WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(locationID))
	return scanLocation(row)
}

func (s *PostgresStore) Regions(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT region FROM locations ORDER BY region`)
}

func (s *PostgresStore) SubRegions(ctx context.Context, region string) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT sub_region FROM locations WHERE region = $1 ORDER BY sub_region`, region)
}

func (s *PostgresStore) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan location name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanLocation(row *sql.Row) (*Location, error) {
	var (
		loc   Location
		rawID uuid.UUID
	)
	if err := row.Scan(&rawID, &loc.Region, &loc.SubRegion, &loc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan location: %w", err)
	}
	loc.ID = id.LocationID(rawID)
	return &loc, nil
}
