package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/streamvault/hlsdl/internal/common"
)

const schemaVersion = 1

// SQLite is a Store backed by the pure-Go modernc.org/sqlite driver. A prior
// bbolt repository's JSON-blob-per-record and schema-version-on-init
// bookkeeping is replaced here with a relational schema so
// UpdateJobProgress can update its five progress columns without a
// read-modify-write.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if necessary creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer WAL usage; avoids SQLITE_BUSY under the engine's own serialization

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version >= schemaVersion {
		return nil
	}

	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	source_url TEXT NOT NULL,
	playlist_url TEXT NOT NULL,
	filename TEXT NOT NULL,
	status INTEGER NOT NULL,
	threads INTEGER NOT NULL,
	output_dir TEXT NOT NULL,
	segments TEXT NOT NULL,
	total_segments INTEGER NOT NULL,
	downloaded_segments INTEGER NOT NULL,
	file_size INTEGER NOT NULL,
	downloaded_bytes INTEGER NOT NULL,
	progress REAL NOT NULL,
	speed INTEGER NOT NULL,
	eta INTEGER NOT NULL,
	output_file TEXT NOT NULL,
	duration REAL NOT NULL,
	error_message TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	max_concurrent_downloads INTEGER NOT NULL,
	default_threads INTEGER NOT NULL,
	default_output_path TEXT NOT NULL,
	auto_start INTEGER NOT NULL
);
`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

func (s *SQLite) SaveJob(ctx context.Context, job *common.Job) error {
	segments, err := json.Marshal(job.Segments)
	if err != nil {
		return fmt.Errorf("store: marshal segments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO jobs (id, source_url, playlist_url, filename, status, threads, output_dir,
	segments, total_segments, downloaded_segments, file_size, downloaded_bytes,
	progress, speed, eta, output_file, duration, error_message, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
	source_url=excluded.source_url, playlist_url=excluded.playlist_url,
	filename=excluded.filename, status=excluded.status, threads=excluded.threads,
	output_dir=excluded.output_dir, segments=excluded.segments,
	total_segments=excluded.total_segments, downloaded_segments=excluded.downloaded_segments,
	file_size=excluded.file_size, downloaded_bytes=excluded.downloaded_bytes,
	progress=excluded.progress, speed=excluded.speed, eta=excluded.eta,
	output_file=excluded.output_file, duration=excluded.duration,
	error_message=excluded.error_message, updated_at=excluded.updated_at
`,
		job.ID, job.SourceURL, job.PlaylistURL, job.Filename, job.Status, job.Threads, job.OutputDir,
		string(segments), job.TotalSegments, job.DownloadedSegments, job.FileSize, job.DownloadedBytes,
		job.Progress, job.Speed, job.ETA, job.OutputFile, job.Duration, job.ErrorMessage,
		job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLite) GetJob(ctx context.Context, id string) (*common.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source_url, playlist_url, filename, status, threads,
	output_dir, segments, total_segments, downloaded_segments, file_size, downloaded_bytes,
	progress, speed, eta, output_file, duration, error_message, created_at, updated_at
	FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get job %s: %w", id, err)
	}
	return job, nil
}

func (s *SQLite) ListJobs(ctx context.Context) ([]*common.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_url, playlist_url, filename, status, threads,
	output_dir, segments, total_segments, downloaded_segments, file_size, downloaded_bytes,
	progress, speed, eta, output_file, duration, error_message, created_at, updated_at
	FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var out []*common.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *SQLite) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) UpdateJobProgress(ctx context.Context, id string, downloadedSegments int, downloadedBytes, speed, eta int64, progress float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET downloaded_segments = ?, downloaded_bytes = ?,
	speed = ?, eta = ?, progress = ?, updated_at = ? WHERE id = ?`,
		downloadedSegments, downloadedBytes, speed, eta, progress, time.Now().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("store: update progress %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) UpdateJobStatus(ctx context.Context, id string, status common.Status, errorMessage, outputFile string, duration float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status = ?, error_message = ?,
	output_file = CASE WHEN ? != '' THEN ? ELSE output_file END,
	duration = CASE WHEN ? > 0 THEN ? ELSE duration END,
	updated_at = ? WHERE id = ?`,
		status, errorMessage, outputFile, outputFile, duration, duration, time.Now().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("store: update status %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) GetSettings(ctx context.Context) (common.Settings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT max_concurrent_downloads, default_threads,
	default_output_path, auto_start FROM settings WHERE id = 1`)

	var st common.Settings
	var autoStart int
	err := row.Scan(&st.MaxConcurrentDownloads, &st.DefaultThreads, &st.DefaultOutputPath, &autoStart)
	if err == sql.ErrNoRows {
		return common.DefaultSettings(), nil
	}
	if err != nil {
		return common.Settings{}, fmt.Errorf("store: get settings: %w", err)
	}
	st.AutoStart = autoStart != 0
	return st, nil
}

func (s *SQLite) SaveSettings(ctx context.Context, st common.Settings) error {
	autoStart := 0
	if st.AutoStart {
		autoStart = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (id, max_concurrent_downloads, default_threads, default_output_path, auto_start)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	max_concurrent_downloads=excluded.max_concurrent_downloads,
	default_threads=excluded.default_threads,
	default_output_path=excluded.default_output_path,
	auto_start=excluded.auto_start
`, st.MaxConcurrentDownloads, st.DefaultThreads, st.DefaultOutputPath, autoStart)
	if err != nil {
		return fmt.Errorf("store: save settings: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*common.Job, error) {
	var job common.Job
	var segments string
	var createdAt, updatedAt string

	err := row.Scan(&job.ID, &job.SourceURL, &job.PlaylistURL, &job.Filename, &job.Status, &job.Threads,
		&job.OutputDir, &segments, &job.TotalSegments, &job.DownloadedSegments, &job.FileSize, &job.DownloadedBytes,
		&job.Progress, &job.Speed, &job.ETA, &job.OutputFile, &job.Duration, &job.ErrorMessage,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(segments), &job.Segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
