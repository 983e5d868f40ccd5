// Package sqlite provides a SQLite-backed implementation of the job,
// chunk and report stores. A single database file holds all pipeline
// state so batches survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/scengen-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// job, chunk and report store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.scengen/data/scengen.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".scengen", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "scengen.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// JobStore returns a JobStore interface backed by this store.
func (s *Store) JobStore() driven.JobStore {
	return &jobStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// ReportStore returns a ReportStore interface backed by this store.
func (s *Store) ReportStore() driven.ReportStore {
	return &reportStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Job Store ====================

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

// SaveSubJob stores or updates a sub-job.
func (s *jobStore) SaveSubJob(ctx context.Context, job *domain.SubJob) error {
	inputJSON, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("marshalling input: %w", err)
	}
	resultsJSON, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sub_jobs (id, batch_id, status, input, results, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			batch_id = excluded.batch_id,
			status = excluded.status,
			input = excluded.input,
			results = excluded.results,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, job.ID, job.BatchID, string(job.Status), string(inputJSON), string(resultsJSON),
		job.Error, nullTime(job.StartedAt), nullTime(job.FinishedAt))

	if err != nil {
		return fmt.Errorf("saving sub-job: %w", err)
	}
	return nil
}

// GetSubJob retrieves a sub-job by id.
func (s *jobStore) GetSubJob(ctx context.Context, id string) (*domain.SubJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, batch_id, status, input, results, error, started_at, finished_at
		FROM sub_jobs WHERE id = ?
	`, id)

	var job domain.SubJob
	var status, inputJSON string
	var resultsJSON, jobErr sql.NullString
	var startedAt, finishedAt sql.NullTime
	if err := row.Scan(&job.ID, &job.BatchID, &status, &inputJSON,
		&resultsJSON, &jobErr, &startedAt, &finishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sub-job: %w", err)
	}

	job.Status = domain.SubJobStatus(status)
	job.Error = jobErr.String
	if err := json.Unmarshal([]byte(inputJSON), &job.Input); err != nil {
		return nil, fmt.Errorf("unmarshaling input: %w", err)
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &job.Results); err != nil {
			return nil, fmt.Errorf("unmarshaling results: %w", err)
		}
	}
	if startedAt.Valid {
		job.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		job.FinishedAt = finishedAt.Time
	}

	return &job, nil
}

// SaveBatch stores or updates a batch record.
func (s *jobStore) SaveBatch(ctx context.Context, batch *domain.BatchJob) error {
	subJobIDsJSON, err := json.Marshal(batch.SubJobIDs)
	if err != nil {
		return fmt.Errorf("marshalling sub-job ids: %w", err)
	}
	aggJSON, err := json.Marshal(batch.AggregationResults)
	if err != nil {
		return fmt.Errorf("marshalling aggregation results: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO batches (id, sub_job_ids, status, error, aggregation_results, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sub_job_ids = excluded.sub_job_ids,
			status = excluded.status,
			error = excluded.error,
			aggregation_results = excluded.aggregation_results,
			updated_at = excluded.updated_at
	`, batch.ID, string(subJobIDsJSON), string(batch.Status), batch.Error,
		string(aggJSON), batch.CreatedAt, batch.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch record by id.
func (s *jobStore) GetBatch(ctx context.Context, id string) (*domain.BatchJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, sub_job_ids, status, error, aggregation_results, created_at, updated_at
		FROM batches WHERE id = ?
	`, id)

	var batch domain.BatchJob
	var status, subJobIDsJSON string
	var batchErr, aggJSON sql.NullString
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&batch.ID, &subJobIDsJSON, &status, &batchErr,
		&aggJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning batch: %w", err)
	}

	batch.Status = domain.BatchState(status)
	batch.Error = batchErr.String
	if err := json.Unmarshal([]byte(subJobIDsJSON), &batch.SubJobIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling sub-job ids: %w", err)
	}
	if aggJSON.Valid && aggJSON.String != "" {
		if err := json.Unmarshal([]byte(aggJSON.String), &batch.AggregationResults); err != nil {
			return nil, fmt.Errorf("unmarshaling aggregation results: %w", err)
		}
	}
	if createdAt.Valid {
		batch.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		batch.UpdatedAt = updatedAt.Time
	}

	return &batch, nil
}

// ListBatches returns every batch record, newest first.
func (s *jobStore) ListBatches(ctx context.Context) ([]domain.BatchJob, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, sub_job_ids, status, error, aggregation_results, created_at, updated_at
		FROM batches ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.BatchJob
	for rows.Next() {
		var batch domain.BatchJob
		var status, subJobIDsJSON string
		var batchErr, aggJSON sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&batch.ID, &subJobIDsJSON, &status, &batchErr,
			&aggJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}

		batch.Status = domain.BatchState(status)
		batch.Error = batchErr.String
		if err := json.Unmarshal([]byte(subJobIDsJSON), &batch.SubJobIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling sub-job ids: %w", err)
		}
		if aggJSON.Valid && aggJSON.String != "" {
			if err := json.Unmarshal([]byte(aggJSON.String), &batch.AggregationResults); err != nil {
				return nil, fmt.Errorf("unmarshaling aggregation results: %w", err)
			}
		}
		if createdAt.Valid {
			batch.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			batch.UpdatedAt = updatedAt.Time
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}

	return batches, nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveChunkedDocument stores a chunk set keyed by document key.
func (s *chunkStore) SaveChunkedDocument(ctx context.Context, doc *domain.ChunkedDocument) error {
	chunksJSON, err := json.Marshal(doc.Chunks)
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO chunked_documents (document_key, chunks, total_tokens, chunked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(document_key) DO UPDATE SET
			chunks = excluded.chunks,
			total_tokens = excluded.total_tokens,
			chunked_at = excluded.chunked_at
	`, doc.DocumentKey, string(chunksJSON), doc.TotalTokens, doc.ChunkedAt)

	if err != nil {
		return fmt.Errorf("saving chunked document: %w", err)
	}
	return nil
}

// GetChunkedDocument retrieves the chunk set for a document key.
func (s *chunkStore) GetChunkedDocument(ctx context.Context, documentKey string) (*domain.ChunkedDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_key, chunks, total_tokens, chunked_at
		FROM chunked_documents WHERE document_key = ?
	`, documentKey)

	var doc domain.ChunkedDocument
	var chunksJSON string
	var chunkedAt sql.NullTime
	if err := row.Scan(&doc.DocumentKey, &chunksJSON, &doc.TotalTokens, &chunkedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunked document: %w", err)
	}

	if err := json.Unmarshal([]byte(chunksJSON), &doc.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshaling chunks: %w", err)
	}
	if chunkedAt.Valid {
		doc.ChunkedAt = chunkedAt.Time
	}

	return &doc, nil
}

// ==================== Report Store ====================

// reportStore implements driven.ReportStore.
type reportStore struct {
	store *Store
}

var _ driven.ReportStore = (*reportStore)(nil)

// SaveDedupReport stores a deduplication audit report. Reports are
// append-only; each write gets a fresh row id.
func (s *reportStore) SaveDedupReport(ctx context.Context, report *domain.DedupReport) error {
	groupsJSON, err := json.Marshal(report.DuplicateGroups)
	if err != nil {
		return fmt.Errorf("marshalling duplicate groups: %w", err)
	}

	createdAt := report.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO dedup_reports (id, batch_id, threshold, duplicate_groups, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), report.BatchID, report.Threshold, string(groupsJSON), createdAt)

	if err != nil {
		return fmt.Errorf("saving dedup report: %w", err)
	}
	return nil
}

// ListDedupReports returns the reports recorded for a batch, oldest
// first.
func (s *reportStore) ListDedupReports(ctx context.Context, batchID string) ([]domain.DedupReport, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT batch_id, threshold, duplicate_groups, created_at
		FROM dedup_reports WHERE batch_id = ? ORDER BY created_at ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("listing dedup reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.DedupReport
	for rows.Next() {
		var report domain.DedupReport
		var groupsJSON string
		var createdAt sql.NullTime
		if err := rows.Scan(&report.BatchID, &report.Threshold, &groupsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning dedup report: %w", err)
		}
		if err := json.Unmarshal([]byte(groupsJSON), &report.DuplicateGroups); err != nil {
			return nil, fmt.Errorf("unmarshaling duplicate groups: %w", err)
		}
		if createdAt.Valid {
			report.Timestamp = createdAt.Time
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing dedup reports: %w", err)
	}

	return reports, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
