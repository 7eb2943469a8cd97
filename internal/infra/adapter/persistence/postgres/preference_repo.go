package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/repository"
)

type PreferenceRepo struct {
	db *sql.DB
}

func NewPreferenceRepo(db *sql.DB) repository.PreferenceRepository {
	return &PreferenceRepo{db: db}
}

func (repo *PreferenceRepo) Create(ctx context.Context, p *entity.PreferenceVector) (*entity.PreferenceVector, error) {
	const query = `
INSERT INTO preference_vectors (title, description, embedding, color)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`

	var embedding interface{}
	if p.Embedding != nil {
		embedding = pgvector.NewVector(p.Embedding)
	}

	err := repo.db.QueryRowContext(ctx, query, p.Title, p.Description, embedding, p.Color).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("Create: %w", err)
	}
	return p, nil
}

func (repo *PreferenceRepo) Get(ctx context.Context, id int64) (*entity.PreferenceVector, error) {
	const query = `
SELECT id, title, description, embedding::text, color, created_at, updated_at
FROM preference_vectors
WHERE id = $1`

	p, err := scanPreference(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return p, nil
}

func (repo *PreferenceRepo) List(ctx context.Context) ([]*entity.PreferenceVector, error) {
	const query = `
SELECT id, title, description, embedding::text, color, created_at, updated_at
FROM preference_vectors
ORDER BY id ASC`

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	prefs := make([]*entity.PreferenceVector, 0, 16)
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

func (repo *PreferenceRepo) Update(ctx context.Context, p *entity.PreferenceVector) (*entity.PreferenceVector, error) {
	const query = `
UPDATE preference_vectors
SET title = $1, description = $2, embedding = $3, color = $4, updated_at = now()
WHERE id = $5
RETURNING updated_at`

	var embedding interface{}
	if p.Embedding != nil {
		embedding = pgvector.NewVector(p.Embedding)
	}

	err := repo.db.QueryRowContext(ctx, query, p.Title, p.Description, embedding, p.Color, p.ID).
		Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("Update: %w", err)
	}
	return p, nil
}

func (repo *PreferenceRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM preference_vectors WHERE id = $1`, id)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPreference(row rowScanner) (*entity.PreferenceVector, error) {
	var p entity.PreferenceVector
	var emb, color sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &emb, &color,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Color = color.String
	if emb.Valid {
		var err error
		if p.Embedding, err = parseVector(emb.String); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// isUniqueViolation matches PostgreSQL error 23505 without depending on
// driver error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
