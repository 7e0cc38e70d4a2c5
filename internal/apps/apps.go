package apps

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

var ErrNameVersionRequired = errors.New("app name and version are required")

const StatusInstalled = "installed"

type App struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
}

// Installed is the inventory reported until a device agent supplies a real one.
var Installed = []App{
	{Name: "Chrome", Version: "120.0.6099.130", Path: `C:\Program Files\Google\Chrome\Application\chrome.exe`},
	{Name: "Firefox", Version: "121.0", Path: `C:\Program Files\Mozilla Firefox\firefox.exe`},
	{Name: "Visual Studio Code", Version: "1.85.1", Path: `C:\Users\AppData\Local\Programs\Microsoft VS Code\Code.exe`},
}

type Installation struct {
	ID        string    `json:"id"`
	AppName   string    `json:"appName"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// Registry lists installed apps and records installation history in SQLite.
type Registry struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

func NewRegistry(ctx context.Context, db *sql.DB, logger logging.Logger) (*Registry, error) {
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
	return &Registry{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "apps"}),
		now:    time.Now,
	}, nil
}

// List returns the installed applications.
func (r *Registry) List(_ context.Context) []App {
	return append([]App(nil), Installed...)
}

// RecordInstallation appends to the installation history. A zero timestamp
// means now.
func (r *Registry) RecordInstallation(ctx context.Context, appName, version string, ts time.Time) (*Installation, error) {
	appName, version = strings.TrimSpace(appName), strings.TrimSpace(version)
	if appName == "" || version == "" {
		return nil, ErrNameVersionRequired
	}
	if ts.IsZero() {
		ts = r.now()
	}

	in := &Installation{
		ID:        uuid.New().String(),
		AppName:   appName,
		Version:   version,
		Timestamp: ts.UTC(),
		Status:    StatusInstalled,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO installations (id, app_name, version, timestamp, status) VALUES (?, ?, ?, ?, ?)`,
		in.ID, in.AppName, in.Version, in.Timestamp.UnixMilli(), in.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert installation: %w", err)
	}
	r.logger.Info("installation recorded",
		logging.Field{Key: "app", Value: appName},
		logging.Field{Key: "version", Value: version})
	return in, nil
}

// History returns recorded installations, oldest first.
func (r *Registry) History(ctx context.Context) ([]Installation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, app_name, version, timestamp, status FROM installations ORDER BY timestamp ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Installation{}
	for rows.Next() {
		var in Installation
		var ts int64
		if err := rows.Scan(&in.ID, &in.AppName, &in.Version, &ts, &in.Status); err != nil {
			return nil, err
		}
		in.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, in)
	}
	return out, rows.Err()
}
