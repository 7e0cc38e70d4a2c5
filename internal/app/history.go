package app

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/shieldsuite/internal/riskscore"
)

//go:embed schema.sql
var schemaFS embed.FS

// Scan kinds recorded in the history.
const (
	KindAPK  = "apk"
	KindBulk = "bulk"
	KindHash = "hash"
	KindFile = "file"
	KindURL  = "url"
)

// ScanRecord is one row of the scan history.
type ScanRecord struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Target    string          `json:"target"`
	RiskScore int             `json:"riskScore"`
	RiskLevel riskscore.Level `json:"riskLevel,omitempty"`
	IsSafe    bool            `json:"isSafe"`
	Threats   []string        `json:"threats"`
	ScannedAt time.Time       `json:"scannedAt"`
}

// ScanHistory persists every scan the suite performs.
type ScanHistory struct {
	db *sql.DB
}

func NewScanHistory(ctx context.Context, db *sql.DB) (*ScanHistory, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &ScanHistory{db: db}, nil
}

// recordAssessment builds a record from a scorer result.
func recordAssessment(kind, target string, a *riskscore.Assessment) ScanRecord {
	return ScanRecord{
		Kind:      kind,
		Target:    target,
		RiskScore: a.RiskScore,
		RiskLevel: a.RiskLevel,
		IsSafe:    a.IsSafe,
		Threats:   a.Threats,
		ScannedAt: a.ScanTime,
	}
}

// Record stores rec, assigning an ID and timestamp when missing.
func (h *ScanHistory) Record(ctx context.Context, rec ScanRecord) (*ScanRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now()
	}
	rec.ScannedAt = rec.ScannedAt.UTC()
	if rec.Threats == nil {
		rec.Threats = []string{}
	}
	threats, err := json.Marshal(rec.Threats)
	if err != nil {
		return nil, err
	}

	_, err = h.db.ExecContext(ctx,
		`INSERT INTO scan_history (id, kind, target, risk_score, risk_level, is_safe, threats, scanned_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Target, rec.RiskScore, string(rec.RiskLevel), rec.IsSafe, string(threats), rec.ScannedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan record: %w", err)
	}
	return &rec, nil
}

// List returns the most recent records first. limit <= 0 returns everything.
func (h *ScanHistory) List(ctx context.Context, limit int) ([]ScanRecord, error) {
	q := `SELECT id, kind, target, risk_score, risk_level, is_safe, threats, scanned_at
          FROM scan_history ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ScanRecord{}
	for rows.Next() {
		var (
			rec     ScanRecord
			level   string
			threats string
			ts      int64
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Target, &rec.RiskScore, &level, &rec.IsSafe, &threats, &ts); err != nil {
			return nil, err
		}
		rec.RiskLevel = riskscore.Level(level)
		if err := json.Unmarshal([]byte(threats), &rec.Threats); err != nil {
			return nil, fmt.Errorf("decode threats of %s: %w", rec.ID, err)
		}
		rec.ScannedAt = time.UnixMilli(ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
