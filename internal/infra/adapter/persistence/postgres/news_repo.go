// Package postgres implements the repository interfaces on PostgreSQL
// with pgvector for embedding storage and search.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/observability/metrics"
	"github.com/cgast/embird/internal/repository"
)

type NewsRepo struct {
	db *sql.DB
}

func NewNewsRepo(db *sql.DB) repository.NewsRepository {
	return &NewsRepo{db: db}
}

// UpsertByURL inserts the item or, on a URL conflict, bumps hit_count and
// last_seen_at. A conflict is the normal re-sighting path, not an error;
// the stored content and embedding stay untouched.
func (repo *NewsRepo) UpsertByURL(ctx context.Context, item *entity.NewsItem) (*repository.UpsertResult, error) {
	const query = `
INSERT INTO news (title, summary, url, source_url, source_name, embedding, hit_count, first_seen_at, last_seen_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
ON CONFLICT (url) DO UPDATE
SET hit_count = news.hit_count + 1,
    last_seen_at = $7,
    updated_at = now()
RETURNING id, (xmax = 0) AS inserted`

	start := time.Now()
	defer func() { metrics.RecordOperationDuration("news_upsert", time.Since(start)) }()

	var embedding interface{}
	if item.Embedding != nil {
		embedding = pgvector.NewVector(item.Embedding)
	}

	var result repository.UpsertResult
	err := repo.db.QueryRowContext(ctx, query,
		item.Title, item.Summary, item.URL, item.SourceURL, item.SourceName,
		embedding, item.LastSeen,
	).Scan(&result.ID, &result.Inserted)
	if err != nil {
		return nil, fmt.Errorf("UpsertByURL: %w", err)
	}
	return &result, nil
}

// TouchByURL bumps the sighting counters for an already-stored URL.
func (repo *NewsRepo) TouchByURL(ctx context.Context, url string, seenAt time.Time) (bool, error) {
	const query = `
UPDATE news
SET hit_count = hit_count + 1, last_seen_at = $2, updated_at = now()
WHERE url = $1`

	res, err := repo.db.ExecContext(ctx, query, url, seenAt)
	if err != nil {
		return false, fmt.Errorf("TouchByURL: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("TouchByURL: %w", err)
	}
	return affected > 0, nil
}

func (repo *NewsRepo) Get(ctx context.Context, id int64) (*entity.NewsItem, error) {
	const query = `
SELECT id, title, summary, url, source_url, source_name, embedding::text,
       hit_count, first_seen_at, last_seen_at, created_at, updated_at
FROM news
WHERE id = $1`

	var item entity.NewsItem
	var summary, sourceURL, sourceName, emb sql.NullString
	err := repo.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Title, &summary, &item.URL, &sourceURL, &sourceName,
		&emb, &item.HitCount, &item.FirstSeen, &item.LastSeen,
		&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	item.Summary = summary.String
	item.SourceURL = sourceURL.String
	item.SourceName = sourceName.String
	if emb.Valid {
		if item.Embedding, err = parseVector(emb.String); err != nil {
			return nil, fmt.Errorf("Get: %w", err)
		}
	}
	return &item, nil
}

func (repo *NewsRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.NewsItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
SELECT id, title, summary, url, source_url, source_name,
       hit_count, first_seen_at, last_seen_at, created_at, updated_at
FROM news
WHERE id = ANY($1)
ORDER BY id`

	rows, err := repo.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.NewsItem, 0, len(ids))
	for rows.Next() {
		item, err := scanNewsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByIDs: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (repo *NewsRepo) List(ctx context.Context, f repository.NewsFilter) ([]*entity.NewsItem, error) {
	query := `
SELECT id, title, summary, url, source_url, source_name,
       hit_count, first_seen_at, last_seen_at, created_at, updated_at
FROM news`
	args := []interface{}{}
	if f.SourceURL != "" {
		query += `
WHERE source_url = $1`
		args = append(args, f.SourceURL)
	}
	query += fmt.Sprintf(`
ORDER BY last_seen_at DESC
LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.NewsItem, 0, f.Limit)
	for rows.Next() {
		item, err := scanNewsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListInWindow returns every embedded item seen in the past `hours`
// hours, ordered by ascending id so index rebuilds are deterministic.
func (repo *NewsRepo) ListInWindow(ctx context.Context, hours int) ([]*entity.NewsItem, error) {
	const query = `
SELECT id, title, summary, url, source_url, source_name, embedding::text,
       hit_count, first_seen_at, last_seen_at, created_at, updated_at
FROM news
WHERE embedding IS NOT NULL
  AND last_seen_at >= now() - make_interval(hours => $1)
ORDER BY id ASC`

	start := time.Now()
	defer func() { metrics.RecordOperationDuration("news_list_window", time.Since(start)) }()

	rows, err := repo.db.QueryContext(ctx, query, hours)
	if err != nil {
		return nil, fmt.Errorf("ListInWindow: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.NewsItem, 0, 256)
	for rows.Next() {
		var item entity.NewsItem
		var summary, sourceURL, sourceName, emb sql.NullString
		if err := rows.Scan(&item.ID, &item.Title, &summary, &item.URL,
			&sourceURL, &sourceName, &emb, &item.HitCount,
			&item.FirstSeen, &item.LastSeen, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListInWindow: Scan: %w", err)
		}
		item.Summary = summary.String
		item.SourceURL = sourceURL.String
		item.SourceName = sourceName.String
		if emb.Valid {
			if item.Embedding, err = parseVector(emb.String); err != nil {
				return nil, fmt.Errorf("ListInWindow: %w", err)
			}
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (repo *NewsRepo) Trending(ctx context.Context, hours, limit int) ([]*entity.NewsItem, error) {
	const query = `
SELECT id, title, summary, url, source_url, source_name,
       hit_count, first_seen_at, last_seen_at, created_at, updated_at
FROM news
WHERE last_seen_at >= now() - make_interval(hours => $1)
ORDER BY hit_count DESC, last_seen_at DESC
LIMIT $2`

	rows, err := repo.db.QueryContext(ctx, query, hours, limit)
	if err != nil {
		return nil, fmt.Errorf("Trending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.NewsItem, 0, limit)
	for rows.Next() {
		item, err := scanNewsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("Trending: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SearchByCosine is the database fallback for similarity search, used
// when the in-memory index holds no vectors yet.
func (repo *NewsRepo) SearchByCosine(ctx context.Context, embedding []float32, limit int) ([]repository.ScoredNews, error) {
	const query = `
SELECT id, title, summary, url, source_url, source_name,
       hit_count, first_seen_at, last_seen_at, created_at, updated_at,
       1 - (embedding <=> $1) AS similarity
FROM news
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $2`

	start := time.Now()
	defer func() { metrics.RecordOperationDuration("news_cosine_search", time.Since(start)) }()

	rows, err := repo.db.QueryContext(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("SearchByCosine: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.ScoredNews, 0, limit)
	for rows.Next() {
		var item entity.NewsItem
		var summary, sourceURL, sourceName sql.NullString
		var sim float64
		if err := rows.Scan(&item.ID, &item.Title, &summary, &item.URL,
			&sourceURL, &sourceName, &item.HitCount, &item.FirstSeen,
			&item.LastSeen, &item.CreatedAt, &item.UpdatedAt, &sim); err != nil {
			return nil, fmt.Errorf("SearchByCosine: Scan: %w", err)
		}
		item.Summary = summary.String
		item.SourceURL = sourceURL.String
		item.SourceName = sourceName.String
		results = append(results, repository.ScoredNews{Item: &item, Similarity: sim})
	}
	return results, rows.Err()
}

func (repo *NewsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM news WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	return res.RowsAffected()
}

// DeleteOverflow trims the table to maxItems rows, evicting the rows
// with the oldest last_seen_at first.
func (repo *NewsRepo) DeleteOverflow(ctx context.Context, maxItems int) (int64, error) {
	const query = `
DELETE FROM news
WHERE id NOT IN (
    SELECT id FROM news
    ORDER BY last_seen_at DESC
    LIMIT $1
)`
	res, err := repo.db.ExecContext(ctx, query, maxItems)
	if err != nil {
		return 0, fmt.Errorf("DeleteOverflow: %w", err)
	}
	return res.RowsAffected()
}

func (repo *NewsRepo) Stats(ctx context.Context, timelineHours, activeHours int) (*repository.NewsStats, error) {
	stats := &repository.NewsStats{}

	var newest sql.NullTime
	err := repo.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(hit_count), 0),
       COALESCE(AVG(hit_count), 0),
       COUNT(DISTINCT source_url),
       COUNT(*) FILTER (WHERE hit_count > 1),
       MAX(first_seen_at)
FROM news`).
		Scan(&stats.TotalItems, &stats.TotalHits, &stats.AvgHitCount,
			&stats.UniqueSources, &stats.TrendingCount, &newest)
	if err != nil {
		return nil, fmt.Errorf("Stats: totals: %w", err)
	}
	if newest.Valid {
		t := newest.Time
		stats.NewestItem = &t
	}

	var oldest sql.NullTime
	err = repo.db.QueryRowContext(ctx, `
SELECT COUNT(*), MIN(last_seen_at) FROM news
WHERE last_seen_at >= now() - make_interval(hours => $1)`, activeHours).
		Scan(&stats.ActiveItems, &oldest)
	if err != nil {
		return nil, fmt.Errorf("Stats: active: %w", err)
	}
	if oldest.Valid {
		t := oldest.Time
		stats.OldestInWindow = &t
	}

	if stats.Hourly, err = repo.hourlyTimeline(ctx, timelineHours); err != nil {
		return nil, err
	}
	if stats.Lifespans, err = repo.lifespanBuckets(ctx); err != nil {
		return nil, err
	}
	if stats.TopSources, err = repo.topSources(ctx, 10); err != nil {
		return nil, err
	}
	return stats, nil
}

func (repo *NewsRepo) hourlyTimeline(ctx context.Context, hours int) ([]repository.HourlyCount, error) {
	const query = `
SELECT date_trunc('hour', first_seen_at) AS hour, COUNT(*)
FROM news
WHERE first_seen_at >= now() - make_interval(hours => $1)
GROUP BY hour
ORDER BY hour ASC`

	rows, err := repo.db.QueryContext(ctx, query, hours)
	if err != nil {
		return nil, fmt.Errorf("Stats: hourly: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]repository.HourlyCount, 0, hours)
	for rows.Next() {
		var hc repository.HourlyCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, fmt.Errorf("Stats: hourly: Scan: %w", err)
		}
		out = append(out, hc)
	}
	return out, rows.Err()
}

func (repo *NewsRepo) lifespanBuckets(ctx context.Context) ([]repository.LifespanBucket, error) {
	const query = `
SELECT CASE
    WHEN last_seen_at - first_seen_at < interval '1 hour'  THEN '<1h'
    WHEN last_seen_at - first_seen_at < interval '6 hours' THEN '1-6h'
    WHEN last_seen_at - first_seen_at < interval '12 hours' THEN '6-12h'
    WHEN last_seen_at - first_seen_at < interval '24 hours' THEN '12-24h'
    WHEN last_seen_at - first_seen_at < interval '48 hours' THEN '1-2d'
    ELSE '2d+'
END AS bucket, COUNT(*)
FROM news
GROUP BY bucket`

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Stats: lifespans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("Stats: lifespans: Scan: %w", err)
		}
		counts[label] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fixed bucket order, zero-filled so the histogram shape is stable.
	labels := []string{"<1h", "1-6h", "6-12h", "12-24h", "1-2d", "2d+"}
	out := make([]repository.LifespanBucket, 0, len(labels))
	for _, l := range labels {
		out = append(out, repository.LifespanBucket{Label: l, Count: counts[l]})
	}
	return out, nil
}

func (repo *NewsRepo) topSources(ctx context.Context, limit int) ([]repository.SourceCount, error) {
	const query = `
SELECT COALESCE(source_name, ''), COALESCE(source_url, ''), COUNT(*)
FROM news
GROUP BY source_name, source_url
ORDER BY COUNT(*) DESC
LIMIT $1`

	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("Stats: sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]repository.SourceCount, 0, limit)
	for rows.Next() {
		var sc repository.SourceCount
		if err := rows.Scan(&sc.SourceName, &sc.SourceURL, &sc.Count); err != nil {
			return nil, fmt.Errorf("Stats: sources: Scan: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// scanNewsRow scans the embedding-free column set shared by the listing
// queries.
func scanNewsRow(rows *sql.Rows) (*entity.NewsItem, error) {
	var item entity.NewsItem
	var summary, sourceURL, sourceName sql.NullString
	if err := rows.Scan(&item.ID, &item.Title, &summary, &item.URL,
		&sourceURL, &sourceName, &item.HitCount,
		&item.FirstSeen, &item.LastSeen, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Summary = summary.String
	item.SourceURL = sourceURL.String
	item.SourceName = sourceName.String
	return &item, nil
}
