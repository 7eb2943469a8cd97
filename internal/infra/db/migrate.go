package db

import "database/sql"

// MigrateUp applies the PostgreSQL schema. Statements are idempotent so
// the migration can run at every startup.
func MigrateUp(conn *sql.DB) error {
	// pgvector must exist before the vector columns below.
	if _, err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}

	if _, err := conn.Exec(`
CREATE TABLE IF NOT EXISTS news (
    id            SERIAL PRIMARY KEY,
    title         TEXT NOT NULL,
    summary       TEXT,
    url           TEXT NOT NULL UNIQUE,
    source_url    TEXT,
    source_name   TEXT,
    embedding     vector(1024),
    hit_count     INTEGER NOT NULL DEFAULT 1,
    first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_seen_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := conn.Exec(`
CREATE TABLE IF NOT EXISTS preference_vectors (
    id          SERIAL PRIMARY KEY,
    title       TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL,
    embedding   vector(1024),
    color       VARCHAR(20),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := conn.Exec(`
CREATE TABLE IF NOT EXISTS news_clusters (
    id             SERIAL PRIMARY KEY,
    hours          INTEGER NOT NULL,
    min_similarity DOUBLE PRECISION NOT NULL,
    clusters       JSONB NOT NULL,
    article_count  INTEGER NOT NULL DEFAULT 0,
    generated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (hours, min_similarity)
)`); err != nil {
		return err
	}

	if _, err := conn.Exec(`
CREATE TABLE IF NOT EXISTS news_umap (
    id             SERIAL PRIMARY KEY,
    hours          INTEGER NOT NULL,
    min_similarity DOUBLE PRECISION NOT NULL,
    points         JSONB NOT NULL,
    generated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (hours, min_similarity)
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_news_last_seen_at ON news(last_seen_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_news_first_seen_at ON news(first_seen_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_news_source_url ON news(source_url)`,
		`CREATE INDEX IF NOT EXISTS idx_news_hit_count ON news(hit_count DESC)`,
	}
	for _, idx := range indexes {
		if _, err := conn.Exec(idx); err != nil {
			return err
		}
	}

	// ivfflat needs rows to pick centroids; creation fails on some
	// hosted setups, so a miss is tolerated and the cosine fallback
	// query stays correct without it.
	_, _ = conn.Exec(`CREATE INDEX IF NOT EXISTS idx_news_embedding
ON news USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`)

	return nil
}
