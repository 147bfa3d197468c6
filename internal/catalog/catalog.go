// Package catalog records render runs and the images they produced in a
// SQLite database, so a batch can be audited (which pairs were written,
// which failed, and each image's value range) after the fact.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/sphericalharmonics/internal/harmonic"
	"github.com/banshee-data/sphericalharmonics/internal/monitoring"
	"github.com/banshee-data/sphericalharmonics/internal/render"
	"github.com/banshee-data/sphericalharmonics/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Catalog is a handle on the catalogue database.
type Catalog struct {
	db *sql.DB

	// Clock stamps run start and finish times. Open sets it to RealClock.
	Clock timeutil.Clock
}

// Open opens (creating if needed) the catalogue at path and applies any
// pending migrations.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// SQLite allows one writer; serialising through one connection avoids
	// SQLITE_BUSY under concurrent recorders.
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, Clock: timeutil.RealClock{}}
	if err := c.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	// Note: m is not closed; that would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// RunParams describes a run at start time.
type RunParams struct {
	MaxL       int
	Width      int
	Height     int
	SourcePath string
	OutputDir  string
}

// Run is an open catalogue run. It implements render.Recorder.
type Run struct {
	ID string
	c  *Catalog
}

var _ render.Recorder = (*Run)(nil)

// StartRun inserts a new run in the running state.
func (c *Catalog) StartRun(ctx context.Context, p RunParams) (*Run, error) {
	id := uuid.New().String()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO render_runs (run_id, max_l, width, height, source_path, output_dir, started_unix_nanos, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.MaxL, p.Width, p.Height, p.SourcePath, p.OutputDir, c.Clock.Now().UnixNano(), StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return &Run{ID: id, c: c}, nil
}

// Record stores the outcome of one pair.
func (r *Run) Record(ctx context.Context, res render.Result) error {
	var errText sql.NullString
	if res.Err != nil {
		errText = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	_, err := r.c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO render_images (run_id, l, m, min_value, max_value, path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, res.Index.L, res.Index.M, res.Min, res.Max, res.Path, errText)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", res.Index, err)
	}
	return nil
}

// Finish closes the run with the batch summary. runErr is the fatal error
// that ended the run, if any.
func (r *Run) Finish(ctx context.Context, sum render.Summary, runErr error) error {
	status := StatusCompleted
	var errText sql.NullString
	if runErr != nil {
		status = StatusFailed
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := r.c.db.ExecContext(ctx, `
		UPDATE render_runs
		SET finished_unix_nanos = ?, status = ?, images_written = ?, images_failed = ?, error = ?
		WHERE run_id = ?`,
		r.c.Clock.Now().UnixNano(), status, sum.Written, sum.Failed, errText, r.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", r.ID, err)
	}
	return nil
}

// RunRecord is a stored run.
type RunRecord struct {
	ID            string
	MaxL          int
	Width         int
	Height        int
	SourcePath    string
	OutputDir     string
	Started       time.Time
	Finished      *time.Time
	Status        string
	ImagesWritten int
	ImagesFailed  int
	Error         string
}

// GetRun returns one run by id.
func (c *Catalog) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var (
		rec      RunRecord
		started  int64
		finished sql.NullInt64
		errText  sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT run_id, max_l, width, height, source_path, output_dir, started_unix_nanos,
		       finished_unix_nanos, status, images_written, images_failed, error
		FROM render_runs WHERE run_id = ?`, id).Scan(
		&rec.ID, &rec.MaxL, &rec.Width, &rec.Height, &rec.SourcePath, &rec.OutputDir, &started,
		&finished, &rec.Status, &rec.ImagesWritten, &rec.ImagesFailed, &errText)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	rec.Started = time.Unix(0, started)
	if finished.Valid {
		t := time.Unix(0, finished.Int64)
		rec.Finished = &t
	}
	rec.Error = errText.String
	return &rec, nil
}

// Runs returns every run, most recent first.
func (c *Catalog) Runs(ctx context.Context) ([]*RunRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT run_id FROM render_runs ORDER BY started_unix_nanos DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ids = append(ids, id)
	}
	// Drain before issuing more queries on the single connection.
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*RunRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := c.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ImageRecord is a stored per-pair outcome.
type ImageRecord struct {
	Index harmonic.Index
	Min   float64
	Max   float64
	Path  string
	Error string
}

// Images returns the images of a run ordered by l then m.
func (c *Catalog) Images(ctx context.Context, runID string) ([]ImageRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT l, m, min_value, max_value, path, error
		FROM render_images WHERE run_id = ? ORDER BY l, m`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var out []ImageRecord
	for rows.Next() {
		var (
			rec     ImageRecord
			errText sql.NullString
		)
		if err := rows.Scan(&rec.Index.L, &rec.Index.M, &rec.Min, &rec.Max, &rec.Path, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		rec.Error = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
