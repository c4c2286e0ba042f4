// Package metals resolves per-gram scrap prices for precious metals.
//
// Prices live in the backing store's metal_prices table, one row per
// (metal, purity). A separate feed owns that table; this package only
// reads it, through a one hour in-process cache so the hot appraisal
// path never waits on the store.
package metals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/store"
)

// PriceTTL is how long a loaded price snapshot stays served from memory.
const PriceTTL = time.Hour

const snapshotKey = "prices"

// Service answers per-gram price lookups against a cached snapshot.
type Service struct {
	store *store.Store
	log   *slog.Logger
	cache *expirable.LRU[string, []model.MetalPrice]
}

func New(st *store.Store, log *slog.Logger) *Service {
	return &Service{
		store: st,
		log:   log.With("component", "metals"),
		cache: expirable.NewLRU[string, []model.MetalPrice](1, nil, PriceTTL),
	}
}

func (s *Service) snapshot(ctx context.Context) ([]model.MetalPrice, error) {
	if prices, ok := s.cache.Get(snapshotKey); ok {
		return prices, nil
	}
	prices, err := s.store.LoadMetalPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("metals: load prices: %w", err)
	}
	s.cache.Add(snapshotKey, prices)
	s.log.Debug("price snapshot refreshed", "rows", len(prices))
	return prices, nil
}

// PricePerGram returns the scrap price per gram for the given metal at the
// given purity. For gold the purity is the karat (8..24); for silver,
// platinum, and palladium it is the fineness (925, 950, ...). When the
// exact purity row is missing the price is scaled linearly from the purest
// row on hand, which is how refiners quote fractional purities anyway.
// ok is false when no row for the metal exists at all.
func (s *Service) PricePerGram(ctx context.Context, metal string, purity int) (float64, bool, error) {
	prices, err := s.snapshot(ctx)
	if err != nil {
		return 0, false, err
	}
	var best *model.MetalPrice
	for i := range prices {
		p := &prices[i]
		if p.MetalType != metal {
			continue
		}
		if p.Purity == purity {
			return p.PricePerGram, true, nil
		}
		if best == nil || p.Purity > best.Purity {
			best = p
		}
	}
	if best == nil || best.Purity == 0 || purity == 0 {
		return 0, false, nil
	}
	scaled := best.PricePerGram * float64(purity) / float64(best.Purity)
	return scaled, true, nil
}

// Invalidate drops the cached snapshot so the next lookup reloads.
func (s *Service) Invalidate() {
	s.cache.Remove(snapshotKey)
}
