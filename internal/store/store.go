// Package store is the gateway to the backing store. Production runs
// against Supabase Postgres via lib/pq; tests and local runs use SQLite.
// Both drivers speak the same logical schema.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// Store provides typed read/write operations over the backing store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value_json TEXT NOT NULL DEFAULT '{}',
	updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'paused',
	item_type TEXT NOT NULL,
	poll_interval_s INTEGER NOT NULL DEFAULT 60,
	last_run TIMESTAMP,
	min_price REAL NOT NULL DEFAULT 0,
	max_price REAL NOT NULL DEFAULT 0,
	exclude_keywords TEXT NOT NULL DEFAULT '[]',
	max_detail_fetches INTEGER NOT NULL DEFAULT 0,
	filters TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS matches_jewelry (
	task_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	ebay_listing_id TEXT NOT NULL,
	ebay_title TEXT NOT NULL DEFAULT '',
	ebay_url TEXT NOT NULL DEFAULT '',
	listed_price REAL NOT NULL DEFAULT 0,
	shipping_cost REAL NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	buy_format TEXT NOT NULL DEFAULT '',
	seller_feedback INTEGER NOT NULL DEFAULT 0,
	found_at TIMESTAMP,
	status TEXT NOT NULL DEFAULT 'new',
	metal_type TEXT NOT NULL DEFAULT '',
	karat INTEGER NOT NULL DEFAULT 0,
	weight_g REAL NOT NULL DEFAULT 0,
	melt_value REAL NOT NULL DEFAULT 0,
	profit_scrap REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, ebay_listing_id)
);

CREATE TABLE IF NOT EXISTS matches_watch (
	task_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	ebay_listing_id TEXT NOT NULL,
	ebay_title TEXT NOT NULL DEFAULT '',
	ebay_url TEXT NOT NULL DEFAULT '',
	listed_price REAL NOT NULL DEFAULT 0,
	shipping_cost REAL NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	buy_format TEXT NOT NULL DEFAULT '',
	seller_feedback INTEGER NOT NULL DEFAULT 0,
	found_at TIMESTAMP,
	status TEXT NOT NULL DEFAULT 'new',
	case_material TEXT NOT NULL DEFAULT '',
	band_material TEXT NOT NULL DEFAULT '',
	movement TEXT NOT NULL DEFAULT '',
	dial_colour TEXT NOT NULL DEFAULT '',
	year_manufactured INTEGER NOT NULL DEFAULT 0,
	brand TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (task_id, ebay_listing_id)
);

CREATE TABLE IF NOT EXISTS matches_gemstone (
	task_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	ebay_listing_id TEXT NOT NULL,
	ebay_title TEXT NOT NULL DEFAULT '',
	ebay_url TEXT NOT NULL DEFAULT '',
	listed_price REAL NOT NULL DEFAULT 0,
	shipping_cost REAL NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	buy_format TEXT NOT NULL DEFAULT '',
	seller_feedback INTEGER NOT NULL DEFAULT 0,
	found_at TIMESTAMP,
	status TEXT NOT NULL DEFAULT 'new',
	stone_type TEXT NOT NULL DEFAULT '',
	shape TEXT NOT NULL DEFAULT '',
	carat REAL NOT NULL DEFAULT 0,
	colour TEXT NOT NULL DEFAULT '',
	clarity TEXT NOT NULL DEFAULT '',
	cut_grade TEXT NOT NULL DEFAULT '',
	cert_lab TEXT NOT NULL DEFAULT '',
	treatment TEXT NOT NULL DEFAULT '',
	is_natural BOOLEAN NOT NULL DEFAULT TRUE,
	classification TEXT NOT NULL DEFAULT '',
	deal_score REAL NOT NULL DEFAULT 0,
	risk_score REAL NOT NULL DEFAULT 0,
	ai_score REAL NOT NULL DEFAULT 0,
	ai_reasoning TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (task_id, ebay_listing_id)
);

CREATE TABLE IF NOT EXISTS rejected_items (
	task_id TEXT NOT NULL,
	ebay_listing_id TEXT NOT NULL,
	rejection_reason TEXT NOT NULL DEFAULT '',
	rejected_at TIMESTAMP,
	expires_at TIMESTAMP,
	PRIMARY KEY (task_id, ebay_listing_id)
);

CREATE TABLE IF NOT EXISTS ebay_item_cache (
	ebay_item_id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	item_specifics TEXT NOT NULL DEFAULT '[]',
	fetched_at TIMESTAMP,
	expires_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metal_prices (
	metal_type TEXT NOT NULL,
	purity INTEGER NOT NULL,
	price_per_gram REAL NOT NULL DEFAULT 0,
	updated_at TIMESTAMP,
	PRIMARY KEY (metal_type, purity)
);

CREATE TABLE IF NOT EXISTS api_usage (
	app_id TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	calls INTEGER NOT NULL DEFAULT 1,
	day TEXT NOT NULL,
	logged_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_rejected_expires ON rejected_items(expires_at);
CREATE INDEX IF NOT EXISTS idx_item_cache_expires ON ebay_item_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_api_usage_day ON api_usage(app_id, day);
`

// OpenPostgres connects to the Supabase Postgres backing store.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// OpenSQLite creates or opens a SQLite database at the given path and
// ensures the schema exists. Used by tests and local runs.
func OpenSQLite(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	s := &Store{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the logical collections if they do not exist. The
// hosted store is schema-managed externally; this is idempotent either way.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// IsUniqueViolation reports whether err is a duplicate-key insert. This is
// the expected dedup path when a pre-fetched skip-set lags the table.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "2067")
}

// --- tasks ---

const taskCols = `id, user_id, name, status, item_type, poll_interval_s, last_run, min_price, max_price, exclude_keywords, max_detail_fetches, filters`

// LoadActiveTasks returns all tasks with status 'active'.
func (s *Store) LoadActiveTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE status = $1 ORDER BY id`, string(model.TaskActive))
	if err != nil {
		return nil, fmt.Errorf("store: load active tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SaveTask inserts or replaces a task row. The worker itself only updates
// last_run; this exists for tests and local seeding.
func (s *Store) SaveTask(ctx context.Context, t *model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("store: save task: %w", err)
	}
	exclude, err := json.Marshal(t.ExcludeKeywords)
	if err != nil {
		return fmt.Errorf("store: save task: marshal exclude keywords: %w", err)
	}
	filters, err := marshalFilters(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, name, status, item_type, poll_interval_s, last_run, min_price, max_price, exclude_keywords, max_detail_fetches, filters)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   user_id=excluded.user_id, name=excluded.name, status=excluded.status,
		   item_type=excluded.item_type, poll_interval_s=excluded.poll_interval_s,
		   last_run=excluded.last_run, min_price=excluded.min_price,
		   max_price=excluded.max_price, exclude_keywords=excluded.exclude_keywords,
		   max_detail_fetches=excluded.max_detail_fetches, filters=excluded.filters`,
		t.ID, t.UserID, t.Name, string(t.Status), string(t.ItemType), t.PollIntervalS,
		nullTime(t.LastRun), t.MinPrice, t.MaxPrice, string(exclude), t.MaxDetailFetches, string(filters),
	)
	if err != nil {
		return fmt.Errorf("store: save task: %w", err)
	}
	return nil
}

// UpdateTaskLastRun records the completion time of a task run.
func (s *Store) UpdateTaskLastRun(ctx context.Context, taskID string, ranAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET last_run = $1 WHERE id = $2`, ranAt.UTC(), taskID)
	if err != nil {
		return fmt.Errorf("store: update task last_run: %w", err)
	}
	return nil
}

func marshalFilters(t *model.Task) ([]byte, error) {
	var v any
	switch t.ItemType {
	case model.ItemTypeJewelry:
		v = t.Jewelry
	case model.ItemTypeWatch:
		v = t.Watch
	case model.ItemTypeGemstone:
		v = t.Gemstone
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: marshal %s filters: %w", t.ItemType, err)
	}
	return raw, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t           model.Task
		status      string
		itemType    string
		lastRun     sql.NullTime
		excludeJSON string
		filtersJSON string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &status, &itemType, &t.PollIntervalS,
		&lastRun, &t.MinPrice, &t.MaxPrice, &excludeJSON, &t.MaxDetailFetches, &filtersJSON); err != nil {
		return t, fmt.Errorf("store: scan task: %w", err)
	}
	t.Status = model.TaskStatus(status)
	t.ItemType = model.ItemType(itemType)
	if lastRun.Valid {
		t.LastRun = lastRun.Time
	}
	if excludeJSON != "" {
		if err := json.Unmarshal([]byte(excludeJSON), &t.ExcludeKeywords); err != nil {
			return t, fmt.Errorf("store: task %s: decode exclude keywords: %w", t.ID, err)
		}
	}
	switch t.ItemType {
	case model.ItemTypeJewelry:
		t.Jewelry = &model.JewelryFilters{}
		if err := json.Unmarshal([]byte(filtersJSON), t.Jewelry); err != nil {
			return t, fmt.Errorf("store: task %s: decode jewelry filters: %w", t.ID, err)
		}
	case model.ItemTypeWatch:
		t.Watch = &model.WatchFilters{}
		if err := json.Unmarshal([]byte(filtersJSON), t.Watch); err != nil {
			return t, fmt.Errorf("store: task %s: decode watch filters: %w", t.ID, err)
		}
	case model.ItemTypeGemstone:
		t.Gemstone = &model.GemstoneFilters{}
		if err := json.Unmarshal([]byte(filtersJSON), t.Gemstone); err != nil {
			return t, fmt.Errorf("store: task %s: decode gemstone filters: %w", t.ID, err)
		}
	default:
		return t, fmt.Errorf("store: task %s: unknown item type %q", t.ID, itemType)
	}
	return t, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
