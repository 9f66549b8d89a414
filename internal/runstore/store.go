// Package runstore records sweep runs and the datasets each one produced in a
// sqlite database. The schema is versioned with embedded migrations that are
// applied when the store is opened.
package runstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Run states.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned by GetRun, AddStep and FinishRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the sweep pipeline.
type Run struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	DatasetDir string       `json:"dataset_dir"`
	OutputDir  string       `json:"output_dir"`
	Config     string       `json:"config"`
	Status     string       `json:"status"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Steps      []StepRecord `json:"steps,omitempty"`
}

// StepRecord is one materialized sweep step.
type StepRecord struct {
	Index        int       `json:"index"`
	Label        string    `json:"label"`
	RootDir      string    `json:"root_dir"`
	LabelFile    string    `json:"label_file"`
	MetadataFile string    `json:"metadata_file"`
	NumImages    int       `json:"num_images"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a sqlite-backed run ledger. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	s, err := OpenNoMigrate(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenNoMigrate opens the database at path as is, for schema management.
func OpenNoMigrate(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// CreateRun inserts r in the running state. An empty ID is replaced by a new
// UUID. The stored run is returned.
func (s *Store) CreateRun(ctx context.Context, r Run) (*Run, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Config == "" {
		r.Config = "{}"
	}
	r.Status = StatusRunning
	r.Error = ""
	r.CreatedAt = s.now().UTC()
	r.FinishedAt = nil
	r.Steps = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, name, dataset_dir, output_dir, config_json, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.DatasetDir, r.OutputDir, r.Config, r.Status, r.CreatedAt.UnixNano())
	if err != nil {
		return nil, errors.Wrapf(err, "insert run %s", r.ID)
	}
	return &r, nil
}

// AddStep records a materialized step of run id.
func (s *Store) AddStep(ctx context.Context, id string, step StepRecord) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_steps (run_id, step_index, label, root_dir, label_file, metadata_file, num_images, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, step.Index, step.Label, step.RootDir, step.LabelFile, step.MetadataFile, step.NumImages,
		s.now().UTC().UnixNano())
	if err != nil {
		return errors.Wrapf(err, "insert step %d of run %s", step.Index, id)
	}
	return nil
}

// FinishRun marks run id as succeeded when runErr is nil, failed otherwise.
func (s *Store) FinishRun(ctx context.Context, id string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE run_id = ?`,
		status, msg, s.now().UTC().UnixNano(), id)
	if err != nil {
		return errors.Wrapf(err, "finish run %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "finish run %s", id)
	}
	if n == 0 {
		return errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. Steps are not loaded.
// A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT run_id, name, dataset_dir, output_dir, config_json, status, error, created_at, finished_at
		FROM runs ORDER BY created_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, errors.Wrap(rows.Err(), "list runs")
}

// GetRun returns run id with its steps in index order.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, name, dataset_dir, output_dir, config_json, status, error, created_at, finished_at
		FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT step_index, label, root_dir, label_file, metadata_file, num_images, created_at
		FROM run_steps WHERE run_id = ? ORDER BY step_index`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "steps of run %s", id)
	}
	defer rows.Close()

	r.Steps = []StepRecord{}
	for rows.Next() {
		var st StepRecord
		var created int64
		if err := rows.Scan(&st.Index, &st.Label, &st.RootDir, &st.LabelFile, &st.MetadataFile,
			&st.NumImages, &created); err != nil {
			return nil, errors.Wrapf(err, "scan step of run %s", id)
		}
		st.CreatedAt = time.Unix(0, created).UTC()
		r.Steps = append(r.Steps, st)
	}
	return r, errors.Wrapf(rows.Err(), "steps of run %s", id)
}

func (s *Store) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE run_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	return errors.Wrapf(err, "look up run %s", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var created int64
	var finished sql.NullInt64
	err := sc.Scan(&r.ID, &r.Name, &r.DatasetDir, &r.OutputDir, &r.Config, &r.Status, &r.Error,
		&created, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan run")
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		r.FinishedAt = &t
	}
	return &r, nil
}
