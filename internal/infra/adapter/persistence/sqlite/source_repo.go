// Package sqlite implements the source registry on a local SQLite file.
// Sources are operator-managed configuration, so they live next to the
// process rather than in the shared PostgreSQL instance.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/repository"
)

// Open opens (and creates, if needed) the SQLite registry at path and
// applies the schema.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS urls (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    url             TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL,
    type            TEXT NOT NULL DEFAULT 'rss',
    active          INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_crawled_at TIMESTAMP
)`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

type SourceRepo struct {
	db *sql.DB
}

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

func (repo *SourceRepo) Create(ctx context.Context, src *entity.Source) (*entity.Source, error) {
	const query = `
INSERT INTO urls (url, name, type, active)
VALUES (?, ?, ?, ?)`

	now := time.Now().UTC()
	res, err := repo.db.ExecContext(ctx, query, src.URL, src.Name, src.Type, boolToInt(src.Active))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("Create: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	src.ID = id
	src.CreatedAt = now
	src.UpdatedAt = now
	return src, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	const query = `
SELECT id, url, name, type, active, created_at, updated_at, last_crawled_at
FROM urls
WHERE id = ?`

	src, err := scanSource(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return src, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	return repo.list(ctx, false)
}

func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	return repo.list(ctx, true)
}

func (repo *SourceRepo) list(ctx context.Context, activeOnly bool) ([]*entity.Source, error) {
	query := `
SELECT id, url, name, type, active, created_at, updated_at, last_crawled_at
FROM urls`
	if activeOnly {
		query += `
WHERE active = 1`
	}
	query += `
ORDER BY id ASC`

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 16)
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Update(ctx context.Context, src *entity.Source) (*entity.Source, error) {
	const query = `
UPDATE urls
SET url = ?, name = ?, type = ?, active = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

	res, err := repo.db.ExecContext(ctx, query,
		src.URL, src.Name, src.Type, boolToInt(src.Active), src.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("Update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if affected == 0 {
		return nil, repository.ErrNotFound
	}
	return repo.Get(ctx, src.ID)
}

func (repo *SourceRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM urls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *SourceRepo) MarkCrawled(ctx context.Context, id int64, at time.Time) error {
	const query = `
UPDATE urls
SET last_crawled_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`
	if _, err := repo.db.ExecContext(ctx, query, at.UTC(), id); err != nil {
		return fmt.Errorf("MarkCrawled: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (*entity.Source, error) {
	var src entity.Source
	var active int
	var lastCrawled sql.NullTime
	if err := row.Scan(&src.ID, &src.URL, &src.Name, &src.Type, &active,
		&src.CreatedAt, &src.UpdatedAt, &lastCrawled); err != nil {
		return nil, err
	}
	src.Active = active != 0
	if lastCrawled.Valid {
		t := lastCrawled.Time
		src.LastCrawledAt = &t
	}
	return &src, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
