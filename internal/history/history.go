package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaariainen/circadia/pkg/postgres"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS orchestration_passes (
	id               BIGSERIAL PRIMARY KEY,
	pass_id          UUID NOT NULL,
	setup_id         TEXT NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL,
	forced           BOOLEAN NOT NULL,
	raw_pct          DOUBLE PRECISION NOT NULL,
	shaped_pct       DOUBLE PRECISION NOT NULL,
	brightness_pct   DOUBLE PRECISION,
	kelvin           DOUBLE PRECISION,
	lights_commanded INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passes_setup_time ON orchestration_passes (setup_id, recorded_at);
`

// PassRecord is one completed orchestration pass
type PassRecord struct {
	PassID          string
	SetupID         string
	At              time.Time
	Forced          bool
	RawPct          float64
	ShapedPct       float64
	BrightnessPct   *float64
	Kelvin          *float64
	LightsCommanded int
}

// Recorder persists an audit row per orchestration pass. Recording is
// best-effort: a failed insert never affects the pass that produced it.
type Recorder struct {
	db     postgres.Client
	logger *slog.Logger
}

// NewRecorder creates a pass recorder
func NewRecorder(db postgres.Client, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Init creates the passes table if it does not exist
func (r *Recorder) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create passes table: %w", err)
	}
	return nil
}

// Record inserts one pass row
func (r *Recorder) Record(ctx context.Context, rec PassRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO orchestration_passes
			(pass_id, setup_id, recorded_at, forced, raw_pct, shaped_pct, brightness_pct, kelvin, lights_commanded)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.PassID, rec.SetupID, rec.At, rec.Forced,
		rec.RawPct, rec.ShapedPct, rec.BrightnessPct, rec.Kelvin, rec.LightsCommanded)
	if err != nil {
		return fmt.Errorf("failed to record pass for setup %s: %w", rec.SetupID, err)
	}
	return nil
}

// RecentPasses returns the latest passes for one setup, newest first
func (r *Recorder) RecentPasses(ctx context.Context, setupID string, limit int) ([]PassRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT pass_id, setup_id, recorded_at, forced, raw_pct, shaped_pct, brightness_pct, kelvin, lights_commanded
		 FROM orchestration_passes
		 WHERE setup_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`,
		setupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes for setup %s: %w", setupID, err)
	}
	defer rows.Close()

	var records []PassRecord
	for rows.Next() {
		var rec PassRecord
		if err := rows.Scan(&rec.PassID, &rec.SetupID, &rec.At, &rec.Forced,
			&rec.RawPct, &rec.ShapedPct, &rec.BrightnessPct, &rec.Kelvin, &rec.LightsCommanded); err != nil {
			return nil, fmt.Errorf("failed to scan pass row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
