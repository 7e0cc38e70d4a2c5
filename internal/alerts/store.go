package alerts

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/shieldsuite/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	ErrAlertNotFound  = errors.New("alert not found")
	ErrMissingFields  = errors.New("type, severity, and message are required")
	ErrStatusRequired = errors.New("status is required")
)

// Store persists alerts in SQLite and publishes every change to a Hub.
type Store struct {
	db     *sql.DB
	hub    *Hub
	logger logging.Logger
	now    func() time.Time
}

// NewStore runs migrations from schema.sql. hub may be nil.
func NewStore(ctx context.Context, db *sql.DB, hub *Hub, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{
		db:     db,
		hub:    hub,
		logger: logger.With(logging.Field{Key: "component", Value: "alerts"}),
		now:    time.Now,
	}, nil
}

// Hub returns the store's fan-out hub, or nil.
func (s *Store) Hub() *Hub {
	return s.hub
}

func (s *Store) publish(a Alert) {
	if s.hub != nil {
		s.hub.Publish(a)
	}
}

// Create stores a new alert with status "new" and broadcasts it.
func (s *Store) Create(ctx context.Context, in NewAlert) (*Alert, error) {
	if strings.TrimSpace(in.Type) == "" || strings.TrimSpace(in.Severity) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, ErrMissingFields
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	a := Alert{
		ID:        uuid.New().String(),
		Type:      in.Type,
		Severity:  in.Severity,
		Message:   in.Message,
		Source:    in.Source,
		Timestamp: ts.UTC(),
		Status:    StatusNew,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, type, severity, message, source, timestamp, status)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Type, a.Severity, a.Message, a.Source, a.Timestamp.UnixMilli(), a.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	s.logger.Info("alert created",
		logging.Field{Key: "id", Value: a.ID},
		logging.Field{Key: "type", Value: a.Type},
		logging.Field{Key: "severity", Value: a.Severity})
	s.publish(a)
	return &a, nil
}

const selectAlert = `SELECT id, type, severity, message, source, timestamp, status, updated_at FROM alerts`

func scanAlert(sc interface{ Scan(...any) error }) (*Alert, error) {
	var a Alert
	var ts int64
	var updated sql.NullInt64
	if err := sc.Scan(&a.ID, &a.Type, &a.Severity, &a.Message, &a.Source, &ts, &a.Status, &updated); err != nil {
		return nil, err
	}
	a.Timestamp = time.UnixMilli(ts).UTC()
	if updated.Valid {
		u := time.UnixMilli(updated.Int64).UTC()
		a.UpdatedAt = &u
	}
	return &a, nil
}

// List returns alerts in creation order, narrowed by f.
func (s *Store) List(ctx context.Context, f Filter) ([]Alert, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, f.Severity)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}

	q := selectAlert
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Get returns one alert by id.
func (s *Store) Get(ctx context.Context, id string) (*Alert, error) {
	a, err := scanAlert(s.db.QueryRowContext(ctx, selectAlert+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

// UpdateStatus sets an alert's status and broadcasts it as an alert_update.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) (*Alert, error) {
	if strings.TrimSpace(status) == "" {
		return nil, ErrStatusRequired
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?`,
		status, now.UnixMilli(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlertNotFound
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("alert updated", logging.Field{Key: "id", Value: id}, logging.Field{Key: "status", Value: status})

	ev := *a
	ev.Type = EventUpdated
	s.publish(ev)
	return a, nil
}

// Delete removes an alert and broadcasts it as an alert_deleted.
func (s *Store) Delete(ctx context.Context, id string) (*Alert, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlertNotFound
	}
	s.logger.Info("alert deleted", logging.Field{Key: "id", Value: id})

	ev := *a
	ev.Type = EventDeleted
	s.publish(ev)
	return a, nil
}

// Stats counts alerts by severity, status and type.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		BySeverity: map[string]int{},
		ByStatus:   map[string]int{},
		ByType:     map[string]int{},
	}
	rows, err := s.db.QueryContext(ctx, `SELECT severity, status, type FROM alerts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sev, status, typ string
		if err := rows.Scan(&sev, &status, &typ); err != nil {
			return nil, err
		}
		st.Total++
		st.BySeverity[sev]++
		st.ByStatus[status]++
		st.ByType[typ]++
	}
	return st, rows.Err()
}
