package incident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"streetwatch/internal/incident/models"
	id "streetwatch/pkg/domain"
	"streetwatch/pkg/platform/sentinel"
	"streetwatch/pkg/platform/tx"
)

const incidentColumns = `i.id, i.title, i.description, i.category, i.status, i.priority,
	i.reporter_id, i.assigned_agent_id, i.location_id, i.latitude, i.longitude,
	i.citizen_feedback, i.photo_refs, i.created_at, i.updated_at, i.resolved_at`

// PostgresStore persists incidents in PostgreSQL. Region filters join the
// locations table; everything else reads the incidents table directly.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inc *models.Incident) error {
	if inc.ID.IsZero() {
		inc.ID = id.IncidentID(uuid.New())
	}
	query := `
		INSERT INTO incidents (id, title, description, category, status, priority,
			reporter_id, assigned_agent_id, location_id, latitude, longitude,
			citizen_feedback, photo_refs, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	var coords struct{ lat, lng sql.NullFloat64 }
	if inc.Coordinates != nil {
		coords.lat = sql.NullFloat64{Float64: inc.Coordinates.Latitude, Valid: true}
		coords.lng = sql.NullFloat64{Float64: inc.Coordinates.Longitude, Valid: true}
	}
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(inc.ID), inc.Title, inc.Description, string(inc.Category),
		string(inc.Status), string(inc.Priority), uuid.UUID(inc.ReporterID),
		nullUserID(inc.AssignedAgentID), nullLocationID(inc.LocationID),
		coords.lat, coords.lng, inc.CitizenFeedback,
		pq.Array(inc.PhotoRefs), inc.CreatedAt, inc.UpdatedAt, inc.ResolvedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE i.id = $1`
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(incidentID))
	return scanIncident(row)
}

// Execute loads the incident under a row lock, runs fn, and writes the
// mutation back, all inside one transaction. Concurrent transitions on the
// same incident serialize on the lock, so fn always validates against the
// latest committed state.
func (s *PostgresStore) Execute(ctx context.Context, incidentID id.IncidentID, fn func(inc *models.Incident) error) (*models.Incident, error) {
	var result *models.Incident
	err := tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE i.id = $1 FOR UPDATE`
		row := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(incidentID))
		inc, err := scanIncident(row)
		if err != nil {
			return err
		}
		if err := fn(inc); err != nil {
			return err
		}

		update := `
			UPDATE incidents SET
				title = $2, description = $3, category = $4, status = $5,
				priority = $6, assigned_agent_id = $7, location_id = $8,
				latitude = $9, longitude = $10, citizen_feedback = $11,
				photo_refs = $12, updated_at = $13, resolved_at = $14
			WHERE id = $1
		`
		var coords struct{ lat, lng sql.NullFloat64 }
		if inc.Coordinates != nil {
			coords.lat = sql.NullFloat64{Float64: inc.Coordinates.Latitude, Valid: true}
			coords.lng = sql.NullFloat64{Float64: inc.Coordinates.Longitude, Valid: true}
		}
		_, err = tx.Resolve(ctx, s.db).ExecContext(ctx, update,
			uuid.UUID(inc.ID), inc.Title, inc.Description, string(inc.Category),
			string(inc.Status), string(inc.Priority),
			nullUserID(inc.AssignedAgentID), nullLocationID(inc.LocationID),
			coords.lat, coords.lng, inc.CitizenFeedback,
			pq.Array(inc.PhotoRefs), inc.UpdatedAt, inc.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("update incident: %w", err)
		}
		result = inc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, incidentID id.IncidentID) error {
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `DELETE FROM incidents WHERE id = $1`, uuid.UUID(incidentID))
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, scope models.Scope, filters models.Filters, page models.PageRequest) (*models.Page, error) {
	page = page.Normalize()
	where, args := composeWhere(scope, filters)

	total, err := s.count(ctx, filters, where, args)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents i ` + joinFor(filters) + where +
		orderBy(page) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Page*page.PageSize)

	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Incident, 0, page.PageSize)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	totalPages := int(total) / page.PageSize
	if int(total)%page.PageSize != 0 || total == 0 {
		totalPages++
	}

	return &models.Page{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

func (s *PostgresStore) Count(ctx context.Context, scope models.Scope, filters models.Filters) (int64, error) {
	where, args := composeWhere(scope, filters)
	return s.count(ctx, filters, where, args)
}

func (s *PostgresStore) Stats(ctx context.Context, scope models.Scope, filters models.Filters) (*models.Stats, error) {
	where, args := composeWhere(scope, filters)
	query := `
		SELECT i.status, i.priority, COUNT(*), COUNT(*) FILTER (WHERE i.assigned_agent_id IS NULL)
		FROM incidents i ` + joinFor(filters) + where + `
		GROUP BY i.status, i.priority
	`
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("incident stats: %w", err)
	}
	defer rows.Close()

	stats := models.NewStats()
	for rows.Next() {
		var (
			status     string
			priority   string
			count      int64
			unassigned int64
		)
		if err := rows.Scan(&status, &priority, &count, &unassigned); err != nil {
			return nil, fmt.Errorf("scan incident stats: %w", err)
		}
		stats.PerStatus[models.Status(status)] += count
		stats.PerPriority[models.Priority(priority)] += count
		stats.Total += count
		stats.Unassigned += unassigned
	}
	return stats, rows.Err()
}

func (s *PostgresStore) count(ctx context.Context, filters models.Filters, where string, args []any) (int64, error) {
	query := `SELECT COUNT(*) FROM incidents i ` + joinFor(filters) + where
	var total int64
	if err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return total, nil
}

// composeWhere builds the scope pre-filter plus every optional filter as
// one AND chain. The scope clause always comes first and cannot be
// displaced by any filter combination.
func composeWhere(scope models.Scope, f models.Filters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	switch scope.Kind {
	case models.ScopeAgent:
		add("i.assigned_agent_id = $%d", uuid.UUID(scope.ActorID))
	case models.ScopeCitizen:
		add("i.reporter_id = $%d", uuid.UUID(scope.ActorID))
	}

	if f.Status != nil {
		add("i.status = $%d", string(*f.Status))
	}
	if f.Category != nil {
		add("i.category = $%d", string(*f.Category))
	}
	if !f.AgentID.IsZero() {
		add("i.assigned_agent_id = $%d", uuid.UUID(f.AgentID))
	}
	if f.From != nil {
		add("i.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("i.created_at <= $%d", *f.To)
	}
	if f.Region != "" {
		add("l.region = $%d", f.Region)
	}
	if f.SubRegion != "" {
		add("l.sub_region = $%d", f.SubRegion)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// joinFor adds the locations join only when a region clause needs it.
func joinFor(f models.Filters) string {
	if f.Region != "" || f.SubRegion != "" {
		return "JOIN locations l ON l.id = i.location_id "
	}
	return ""
}

func orderBy(page models.PageRequest) string {
	column := "i.created_at"
	switch page.SortBy {
	case models.SortByPriority:
		column = `array_position(ARRAY['LOW','MEDIUM','HIGH','CRITICAL'], i.priority)`
	case models.SortByStatus:
		column = `array_position(ARRAY['REPORTED','ACKNOWLEDGED','IN_PROGRESS','RESOLVED','CLOSED'], i.status)`
	}
	dir := "ASC"
	if page.Dir == models.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, i.created_at DESC", column, dir)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	var (
		inc            models.Incident
		rawID          uuid.UUID
		rawReporter    uuid.UUID
		rawAgent       uuid.NullUUID
		rawLocation    uuid.NullUUID
		lat, lng       sql.NullFloat64
		category       string
		status         string
		priority       string
		photoRefs      pq.StringArray
		resolvedAt     sql.NullTime
	)
	err := row.Scan(&rawID, &inc.Title, &inc.Description, &category, &status, &priority,
		&rawReporter, &rawAgent, &rawLocation, &lat, &lng,
		&inc.CitizenFeedback, &photoRefs, &inc.CreatedAt, &inc.UpdatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan incident: %w", err)
	}

	inc.ID = id.IncidentID(rawID)
	inc.ReporterID = id.UserID(rawReporter)
	inc.Category = models.Category(category)
	inc.Status = models.Status(status)
	inc.Priority = models.Priority(priority)
	if rawAgent.Valid {
		inc.AssignedAgentID = id.UserID(rawAgent.UUID)
	}
	if rawLocation.Valid {
		inc.LocationID = id.LocationID(rawLocation.UUID)
	}
	if lat.Valid && lng.Valid {
		inc.Coordinates = &models.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if len(photoRefs) > 0 {
		inc.PhotoRefs = []string(photoRefs)
	}
	if resolvedAt.Valid {
		ts := resolvedAt.Time
		inc.ResolvedAt = &ts
	}
	return &inc, nil
}

func nullUserID(userID id.UserID) uuid.NullUUID {
	if userID.IsZero() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: true}
}

func nullLocationID(locationID id.LocationID) uuid.NullUUID {
	if locationID.IsZero() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(locationID), Valid: true}
}
