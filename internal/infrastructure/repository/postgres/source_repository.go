package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SourceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sources (
	id TEXT PRIMARY KEY,
	location TEXT NOT NULL,
	status TEXT NOT NULL,
	total_chunks INTEGER NOT NULL DEFAULT 0,
	uploaded_chunks INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sources_status ON sources(status);
CREATE INDEX IF NOT EXISTS idx_sources_created_at ON sources(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SourceRepository) Create(ctx context.Context, src *domain.Source) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sources (
	id, location, status, total_chunks, uploaded_chunks, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		src.ID, src.Location, string(src.Status), src.TotalChunks, src.UploadedChunks,
		src.Error, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, location, status, total_chunks, uploaded_chunks, error_message, created_at, updated_at
FROM sources
WHERE id = $1
`, id)

	var src domain.Source
	var status string
	var errMessage sql.NullString

	err := row.Scan(
		&src.ID, &src.Location, &status, &src.TotalChunks, &src.UploadedChunks,
		&errMessage, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSourceNotFound, "get source", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Status = domain.SourceStatus(status)
	src.Error = errMessage.String
	return &src, nil
}

func (r *SourceRepository) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE sources
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update source status: %w", err)
	}
	return ensureAffected(res, "update source status", id)
}

func (r *SourceRepository) SaveReport(ctx context.Context, id string, report domain.IngestReport) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE sources
SET total_chunks = $2, uploaded_chunks = $3, updated_at = $4
WHERE id = $1
`, id, report.TotalChunks, report.UploadedChunks, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save ingest report: %w", err)
	}
	return ensureAffected(res, "save ingest report", id)
}

func ensureAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSourceNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
