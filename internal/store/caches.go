package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// TTLs for the content-addressed caches. Expired rows are ignored on read
// and swept by the scheduler's periodic cleanup.
const (
	ItemCacheTTL = 24 * time.Hour
	RejectionTTL = 48 * time.Hour
)

// UpsertRejection records that a listing failed a task's filters so the
// pipeline does not re-pay the detail-fetch cost for 48 hours.
func (s *Store) UpsertRejection(ctx context.Context, r *model.Rejection) error {
	rejectedAt := r.RejectedAt
	if rejectedAt.IsZero() {
		rejectedAt = time.Now().UTC()
	}
	expiresAt := r.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = rejectedAt.Add(RejectionTTL)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rejected_items (task_id, ebay_listing_id, rejection_reason, rejected_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (task_id, ebay_listing_id) DO UPDATE SET
		   rejection_reason=excluded.rejection_reason,
		   rejected_at=excluded.rejected_at,
		   expires_at=excluded.expires_at`,
		r.TaskID, r.EbayListingID, r.Reason, rejectedAt.UTC(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("store: upsert rejection: %w", err)
	}
	return nil
}

// ListActiveRejections returns the set of non-expired rejected listing IDs
// for a task.
func (s *Store) ListActiveRejections(ctx context.Context, taskID string, now time.Time) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ebay_listing_id FROM rejected_items WHERE task_id = $1 AND expires_at > $2`,
		taskID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: list active rejections: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan rejection id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// GetRejection loads one rejection row, expired or not. Nil means absent.
func (s *Store) GetRejection(ctx context.Context, taskID, listingID string) (*model.Rejection, error) {
	var r model.Rejection
	err := s.db.QueryRowContext(ctx,
		`SELECT task_id, ebay_listing_id, rejection_reason, rejected_at, expires_at
		 FROM rejected_items WHERE task_id = $1 AND ebay_listing_id = $2`,
		taskID, listingID).Scan(&r.TaskID, &r.EbayListingID, &r.Reason, &r.RejectedAt, &r.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get rejection: %w", err)
	}
	return &r, nil
}

// GetCachedItem returns the cached detail for an item iff it has not
// expired. Nil means a cache miss.
func (s *Store) GetCachedItem(ctx context.Context, itemID string, now time.Time) (*model.CachedItem, error) {
	var (
		item     model.CachedItem
		specJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT ebay_item_id, title, item_specifics, fetched_at, expires_at
		 FROM ebay_item_cache WHERE ebay_item_id = $1 AND expires_at > $2`,
		itemID, now.UTC()).Scan(&item.EbayItemID, &item.Title, &specJSON, &item.FetchedAt, &item.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get cached item: %w", err)
	}
	if err := json.Unmarshal([]byte(specJSON), &item.Aspects); err != nil {
		return nil, fmt.Errorf("store: decode cached item specifics: %w", err)
	}
	return &item, nil
}

// PutCachedItem writes an item detail through to the cache with a 24 h TTL.
func (s *Store) PutCachedItem(ctx context.Context, item *model.CachedItem) error {
	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	expiresAt := item.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = fetchedAt.Add(ItemCacheTTL)
	}
	specJSON, err := json.Marshal(item.Aspects)
	if err != nil {
		return fmt.Errorf("store: encode item specifics: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ebay_item_cache (ebay_item_id, title, item_specifics, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (ebay_item_id) DO UPDATE SET
		   title=excluded.title, item_specifics=excluded.item_specifics,
		   fetched_at=excluded.fetched_at, expires_at=excluded.expires_at`,
		item.EbayItemID, item.Title, string(specJSON), fetchedAt.UTC(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("store: put cached item: %w", err)
	}
	return nil
}

// DeleteExpiredItemCache removes cache rows whose TTL has lapsed.
func (s *Store) DeleteExpiredItemCache(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ebay_item_cache WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("store: delete expired item cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete expired item cache: rows affected: %w", err)
	}
	return n, nil
}

// DeleteExpiredRejections removes rejection rows whose TTL has lapsed.
func (s *Store) DeleteExpiredRejections(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rejected_items WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("store: delete expired rejections: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete expired rejections: rows affected: %w", err)
	}
	return n, nil
}

// LoadMetalPrices returns every (metal, purity) price point.
func (s *Store) LoadMetalPrices(ctx context.Context) ([]model.MetalPrice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metal_type, purity, price_per_gram, updated_at FROM metal_prices`)
	if err != nil {
		return nil, fmt.Errorf("store: load metal prices: %w", err)
	}
	defer rows.Close()

	var prices []model.MetalPrice
	for rows.Next() {
		var p model.MetalPrice
		var updatedAt sql.NullTime
		if err := rows.Scan(&p.MetalType, &p.Purity, &p.PricePerGram, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan metal price: %w", err)
		}
		if updatedAt.Valid {
			p.UpdatedAt = updatedAt.Time
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// SaveMetalPrice upserts one price point. The price feed owns this table;
// this exists for tests and local seeding.
func (s *Store) SaveMetalPrice(ctx context.Context, p model.MetalPrice) error {
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metal_prices (metal_type, purity, price_per_gram, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (metal_type, purity) DO UPDATE SET
		   price_per_gram=excluded.price_per_gram, updated_at=excluded.updated_at`,
		p.MetalType, p.Purity, p.PricePerGram, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: save metal price: %w", err)
	}
	return nil
}
