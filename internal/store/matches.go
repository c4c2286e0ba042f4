package store

import (
	"context"
	"fmt"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// InsertJewelryMatch inserts one jewelry match row. Duplicate keys surface
// as a unique violation; callers treat that as "already there".
func (s *Store) InsertJewelryMatch(ctx context.Context, m *model.JewelryMatch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches_jewelry
		 (task_id, user_id, ebay_listing_id, ebay_title, ebay_url, listed_price, shipping_cost,
		  currency, buy_format, seller_feedback, found_at, status,
		  metal_type, karat, weight_g, melt_value, profit_scrap)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		m.TaskID, m.UserID, m.EbayListingID, m.EbayTitle, m.EbayURL, m.ListedPrice, m.ShippingCost,
		m.Currency, m.BuyFormat, m.SellerFeedback, foundAt(m.FoundAt), matchStatus(m.Status),
		m.MetalType, m.Karat, m.WeightG, m.MeltValue, m.ProfitScrap)
	if err != nil {
		return fmt.Errorf("store: insert jewelry match: %w", err)
	}
	return nil
}

// InsertWatchMatch inserts one watch match row.
func (s *Store) InsertWatchMatch(ctx context.Context, m *model.WatchMatch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches_watch
		 (task_id, user_id, ebay_listing_id, ebay_title, ebay_url, listed_price, shipping_cost,
		  currency, buy_format, seller_feedback, found_at, status,
		  case_material, band_material, movement, dial_colour, year_manufactured, brand, model)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		m.TaskID, m.UserID, m.EbayListingID, m.EbayTitle, m.EbayURL, m.ListedPrice, m.ShippingCost,
		m.Currency, m.BuyFormat, m.SellerFeedback, foundAt(m.FoundAt), matchStatus(m.Status),
		m.CaseMaterial, m.BandMaterial, m.Movement, m.DialColour, m.YearManufactured, m.Brand, m.Model)
	if err != nil {
		return fmt.Errorf("store: insert watch match: %w", err)
	}
	return nil
}

// InsertGemstoneMatch inserts one gemstone match row.
func (s *Store) InsertGemstoneMatch(ctx context.Context, m *model.GemstoneMatch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches_gemstone
		 (task_id, user_id, ebay_listing_id, ebay_title, ebay_url, listed_price, shipping_cost,
		  currency, buy_format, seller_feedback, found_at, status,
		  stone_type, shape, carat, colour, clarity, cut_grade, cert_lab, treatment,
		  is_natural, classification, deal_score, risk_score, ai_score, ai_reasoning)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		m.TaskID, m.UserID, m.EbayListingID, m.EbayTitle, m.EbayURL, m.ListedPrice, m.ShippingCost,
		m.Currency, m.BuyFormat, m.SellerFeedback, foundAt(m.FoundAt), matchStatus(m.Status),
		m.StoneType, m.Shape, m.Carat, m.Colour, m.Clarity, m.CutGrade, m.CertLab, m.Treatment,
		m.IsNatural, m.Classification, m.DealScore, m.RiskScore, m.AIScore, m.AIReasoning)
	if err != nil {
		return fmt.Errorf("store: insert gemstone match: %w", err)
	}
	return nil
}

// ListMatchedListingIDs returns the set of listing IDs already matched for
// a task in its kind-specific matches table.
func (s *Store) ListMatchedListingIDs(ctx context.Context, taskID string, kind model.ItemType) (map[string]bool, error) {
	table, err := matchTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ebay_listing_id FROM `+table+` WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, fmt.Errorf("store: list matched listing ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan matched listing id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// CountMatches returns the number of match rows for a task.
func (s *Store) CountMatches(ctx context.Context, taskID string, kind model.ItemType) (int, error) {
	table, err := matchTable(kind)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE task_id = $1`, taskID).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count matches: %w", err)
	}
	return count, nil
}

func matchTable(kind model.ItemType) (string, error) {
	switch kind {
	case model.ItemTypeJewelry:
		return "matches_jewelry", nil
	case model.ItemTypeWatch:
		return "matches_watch", nil
	case model.ItemTypeGemstone:
		return "matches_gemstone", nil
	default:
		return "", fmt.Errorf("store: no matches table for item type %q", kind)
	}
}

func foundAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func matchStatus(st model.MatchStatus) string {
	if st == "" {
		return string(model.MatchNew)
	}
	return string(st)
}
