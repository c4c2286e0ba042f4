// Package processor runs one task end to end: candidate collection,
// enrichment, classification, and persistence. A task is one sequential
// unit; concurrency lives in the scheduler.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/appraise"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/catalog"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/ebay"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/extract"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/metals"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/notify"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/store"
)

// freshnessWindow is the age under which a listing jumps the enrichment
// queue.
const freshnessWindow = 10 * time.Minute

// Processor executes tasks against the upstream and the backing store.
type Processor struct {
	store    *store.Store
	client   *ebay.Client
	metals   *metals.Service
	notifier *notify.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func New(st *store.Store, client *ebay.Client, prices *metals.Service, notifier *notify.Notifier, log *slog.Logger) *Processor {
	return &Processor{
		store:    st,
		client:   client,
		metals:   prices,
		notifier: notifier,
		log:      log.With("component", "processor"),
		now:      time.Now,
	}
}

// Stats counts one run's skip reasons and outcomes.
type Stats struct {
	Fetched         int
	AlreadyMatched  int
	AlreadyRejected int
	CategoryMiss    int
	PriceMiss       int
	Excluded        int
	NoKaratMarker   int
	Candidates      int
	DetailMissing   int
	Rejected        int
	Saved           int
	CacheHits       int
	CacheMisses     int
}

// Run processes one task invocation. A rate-limit error aborts the run
// and surfaces; the task retries on its next due tick.
func (p *Processor) Run(ctx context.Context, task *model.Task) (*Stats, error) {
	p.client.ResetCacheStats()
	stats := &Stats{}

	summaries, err := p.collectSummaries(ctx, task)
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(summaries)

	matched, err := p.store.ListMatchedListingIDs(ctx, task.ID, task.ItemType)
	if err != nil {
		return stats, err
	}
	rejected, err := p.store.ListActiveRejections(ctx, task.ID, p.now().UTC())
	if err != nil {
		return stats, err
	}

	candidates := p.filterSummaries(task, summaries, matched, rejected, stats)
	p.sortByPriority(candidates)
	stats.Candidates = len(candidates)

	details, err := p.enrich(ctx, task, &candidates)
	if err != nil {
		return stats, err
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p.classify(ctx, task, &candidates[i], details, stats)
	}

	if err := p.store.UpdateTaskLastRun(ctx, task.ID, p.now().UTC()); err != nil {
		p.log.Warn("update last_run", "task", task.ID, "error", err)
	}
	stats.CacheHits, stats.CacheMisses = p.client.CacheStats()
	p.log.Info("task run complete",
		"task", task.ID,
		"fetched", stats.Fetched,
		"candidates", stats.Candidates,
		"saved", stats.Saved,
		"rejected", stats.Rejected,
		"already_matched", stats.AlreadyMatched,
		"already_rejected", stats.AlreadyRejected,
		"excluded", stats.Excluded,
		"cache_hits", stats.CacheHits,
		"cache_misses", stats.CacheMisses,
	)
	return stats, nil
}

// collectSummaries issues the task's search(es) and unions the results by
// item id, newest first.
func (p *Processor) collectSummaries(ctx context.Context, task *model.Task) ([]ebay.ItemSummary, error) {
	var overrides []string
	switch {
	case task.ItemType == model.ItemTypeJewelry && task.Jewelry != nil && len(task.Jewelry.Metals) >= 2:
		for _, m := range task.Jewelry.Metals {
			overrides = append(overrides, strings.ToLower(m))
		}
	case task.ItemType == model.ItemTypeGemstone && task.Gemstone != nil:
		overrides = gemstoneQueries(task.Gemstone)
	default:
		overrides = []string{""}
	}

	seen := make(map[string]bool)
	var union []ebay.ItemSummary
	for _, override := range overrides {
		summaries, err := p.client.Search(ctx, task, override)
		if err != nil {
			return nil, fmt.Errorf("processor: search task %s: %w", task.ID, err)
		}
		for _, s := range summaries {
			if seen[s.ItemID] {
				continue
			}
			seen[s.ItemID] = true
			union = append(union, s)
		}
	}
	sort.SliceStable(union, func(i, j int) bool {
		return union[i].ItemCreationDate.After(union[j].ItemCreationDate)
	})
	return union, nil
}

// gemstoneQueries builds the 2-5 parallel query strings for a gemstone
// task: tight with cert, a medium "loose" query, an optional jewelry
// query, a cert-focused query, and one per additional stone type.
func gemstoneQueries(f *model.GemstoneFilters) []string {
	stone := "gemstone"
	if len(f.StoneTypes) > 0 {
		stone = strings.ToLower(f.StoneTypes[0])
	}
	queries := []string{
		stone + " loose certified natural",
		stone + " loose",
	}
	if f.IncludeJewelry {
		queries = append(queries, stone+" ring")
	}
	if len(f.Certifications) > 0 {
		queries = append(queries, stone+" "+strings.ToLower(f.Certifications[0]))
	}
	for _, extra := range f.AdditionalStoneTypes {
		if len(queries) >= 5 {
			break
		}
		queries = append(queries, strings.ToLower(extra)+" loose")
	}
	if len(queries) > 5 {
		queries = queries[:5]
	}
	return queries
}

// filterSummaries applies the pre-detail filters in order, counting each
// skip reason.
func (p *Processor) filterSummaries(task *model.Task, summaries []ebay.ItemSummary, matched, rejected map[string]bool, stats *Stats) []ebay.ItemSummary {
	exclusions := buildExclusions(task)
	allowedCats := allowedCategories(task)
	requireMarkers := task.ItemType == model.ItemTypeJewelry &&
		task.Jewelry != nil && task.Jewelry.RequireKaratMarkers &&
		containsFold(task.Jewelry.Metals, "gold")

	var out []ebay.ItemSummary
	for _, s := range summaries {
		switch {
		case matched[s.ItemID]:
			stats.AlreadyMatched++
		case rejected[s.ItemID]:
			stats.AlreadyRejected++
		case len(allowedCats) > 0 && !allowedCats[s.CategoryID()]:
			stats.CategoryMiss++
		case !priceInRange(task, ebay.ParsePrice(s.Price)):
			stats.PriceMiss++
		case titleExcluded(s.Title, exclusions):
			stats.Excluded++
		case requireMarkers && !extract.HasKaratMarker(s.Title):
			stats.NoKaratMarker++
		default:
			out = append(out, s)
		}
	}
	return out
}

// buildExclusions returns the task's exclusion keywords plus, for jewelry
// tasks, the fixed costume and tool lists and the unselected-metal
// keywords. The silver family is never auto-excluded since "silver" shows
// up in too many legitimate titles.
func buildExclusions(task *model.Task) []string {
	exclusions := append([]string{}, task.ExcludeKeywords...)
	if task.ItemType != model.ItemTypeJewelry || task.Jewelry == nil {
		return exclusions
	}
	m := catalog.GetMetals()
	exclusions = append(exclusions, m.CostumeKeywords...)
	exclusions = append(exclusions, m.ToolKeywords...)

	selected := make(map[string]bool, len(task.Jewelry.Metals))
	for _, name := range task.Jewelry.Metals {
		selected[strings.ToLower(name)] = true
	}
	for _, name := range catalog.MetalNames() {
		if selected[name] || name == "silver" {
			continue
		}
		exclusions = append(exclusions, m.Keywords[name]...)
	}
	return exclusions
}

// allowedCategories expands the task's category set; gemstone tasks pull
// in known child categories of any selected parent.
func allowedCategories(task *model.Task) map[string]bool {
	var cats []string
	switch {
	case task.Jewelry != nil:
		cats = task.Jewelry.Categories
	case task.Watch != nil:
		cats = task.Watch.Categories
	case task.Gemstone != nil:
		cats = task.Gemstone.Categories
	}
	if len(cats) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(cats))
	for _, c := range cats {
		allowed[c] = true
		if task.ItemType == model.ItemTypeGemstone {
			for _, child := range catalog.CategoryChildren(c) {
				allowed[child] = true
			}
		}
	}
	return allowed
}

func priceInRange(task *model.Task, price float64) bool {
	if task.MinPrice > 0 && price < task.MinPrice {
		return false
	}
	if task.MaxPrice > 0 && price > task.MaxPrice {
		return false
	}
	return true
}

func titleExcluded(title string, exclusions []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range exclusions {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// sortByPriority puts listings created within the freshness window ahead
// of older ones; within each tier, newest first.
func (p *Processor) sortByPriority(candidates []ebay.ItemSummary) {
	cutoff := p.now().Add(-freshnessWindow)
	sort.SliceStable(candidates, func(i, j int) bool {
		fi := candidates[i].ItemCreationDate.After(cutoff)
		fj := candidates[j].ItemCreationDate.After(cutoff)
		if fi != fj {
			return fi
		}
		return candidates[i].ItemCreationDate.After(candidates[j].ItemCreationDate)
	})
}

// enrich bulk-fetches details for jewelry and gemstone candidates,
// truncating to the task's detail budget. Watch candidates classify from
// the summary alone.
func (p *Processor) enrich(ctx context.Context, task *model.Task, candidates *[]ebay.ItemSummary) (map[string]*ebay.ItemDetail, error) {
	if task.ItemType == model.ItemTypeWatch {
		return map[string]*ebay.ItemDetail{}, nil
	}
	if task.MaxDetailFetches > 0 && len(*candidates) > task.MaxDetailFetches {
		*candidates = (*candidates)[:task.MaxDetailFetches]
	}
	ids := make([]string, 0, len(*candidates))
	for _, c := range *candidates {
		ids = append(ids, c.ItemID)
	}
	details, err := p.client.FetchItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("processor: enrich task %s: %w", task.ID, err)
	}
	return details, nil
}

func (p *Processor) classify(ctx context.Context, task *model.Task, s *ebay.ItemSummary, details map[string]*ebay.ItemDetail, stats *Stats) {
	switch task.ItemType {
	case model.ItemTypeJewelry:
		p.classifyJewelry(ctx, task, s, details[s.ItemID], stats)
	case model.ItemTypeWatch:
		p.classifyWatch(ctx, task, s, stats)
	case model.ItemTypeGemstone:
		p.classifyGemstone(ctx, task, s, details[s.ItemID], stats)
	}
}

func (p *Processor) matchBase(task *model.Task, s *ebay.ItemSummary) model.MatchBase {
	buyFormat := ""
	if len(s.BuyingOptions) > 0 {
		buyFormat = s.BuyingOptions[0]
	}
	return model.MatchBase{
		TaskID:         task.ID,
		UserID:         task.UserID,
		EbayListingID:  s.ItemID,
		EbayTitle:      s.Title,
		EbayURL:        s.ItemWebURL,
		ListedPrice:    ebay.ParsePrice(s.Price),
		ShippingCost:   s.ShippingCost(),
		Currency:       s.Price.Currency,
		BuyFormat:      buyFormat,
		SellerFeedback: s.Seller.FeedbackScore,
		FoundAt:        p.now().UTC(),
		Status:         model.MatchNew,
	}
}

func (p *Processor) reject(ctx context.Context, task *model.Task, listingID, reason string, stats *Stats) {
	stats.Rejected++
	rejectionsTotal.Inc()
	now := p.now().UTC()
	err := p.store.UpsertRejection(ctx, &model.Rejection{
		TaskID:        task.ID,
		EbayListingID: listingID,
		Reason:        reason,
		RejectedAt:    now,
		ExpiresAt:     now.Add(store.RejectionTTL),
	})
	if err != nil {
		p.log.Warn("upsert rejection", "task", task.ID, "item", listingID, "error", err)
	}
}

func (p *Processor) classifyJewelry(ctx context.Context, task *model.Task, s *ebay.ItemSummary, detail *ebay.ItemDetail, stats *Stats) {
	if detail == nil {
		stats.DetailMissing++
		return
	}
	specs := extract.NewSpecs(detail.Aspects())

	if reason, ok := appraise.FilterJewelry(task.Jewelry, s.Title, specs); !ok {
		p.reject(ctx, task, s.ItemID, reason, stats)
		return
	}

	metal, purity, ok := appraise.IdentifyMetal(s.Title, specs)
	if !ok {
		p.reject(ctx, task, s.ItemID, "No solid precious metal identified", stats)
		return
	}
	weight, ok := extract.WeightGrams(specs, s.Title, detail.Description)
	if !ok {
		p.reject(ctx, task, s.ItemID, "No weight found", stats)
		return
	}
	pricePerGram, ok, err := p.metals.PricePerGram(ctx, metal, purity)
	if err != nil {
		p.log.Warn("metal price lookup", "metal", metal, "error", err)
		return
	}
	if !ok {
		p.log.Warn("no price row for metal", "metal", metal, "purity", purity)
		return
	}

	melt := appraise.Melt(pricePerGram, weight)
	price := ebay.ParsePrice(s.Price)
	profit, pass := appraise.ScrapGate(melt, price, s.ShippingCost())
	if !pass {
		p.reject(ctx, task, s.ItemID,
			fmt.Sprintf("Scrap gate: melt $%.2f against cost $%.2f", melt, price+s.ShippingCost()), stats)
		return
	}

	m := &model.JewelryMatch{
		MatchBase:   p.matchBase(task, s),
		MetalType:   metal,
		Karat:       purity,
		WeightG:     weight,
		MeltValue:   melt,
		ProfitScrap: profit,
	}
	if err := p.store.InsertJewelryMatch(ctx, m); err != nil {
		if store.IsUniqueViolation(err) {
			return
		}
		p.log.Error("insert jewelry match", "task", task.ID, "item", s.ItemID, "error", err)
		return
	}
	stats.Saved++
	matchesTotal.WithLabelValues(string(model.ItemTypeJewelry)).Inc()
	p.notifier.JewelryMatch(ctx, m)
}

func (p *Processor) classifyWatch(ctx context.Context, task *model.Task, s *ebay.ItemSummary, stats *Stats) {
	specs := extract.NewSpecs(nil)
	brand := extract.WatchBrand(s.Title, specs)
	year := extract.WatchYear(s.Title, specs)
	caseMaterial := extract.CaseMaterial(s.Title, specs)

	if reason, ok := appraise.FilterWatch(task.Watch, year, caseMaterial); !ok {
		p.reject(ctx, task, s.ItemID, reason, stats)
		return
	}

	m := &model.WatchMatch{
		MatchBase:        p.matchBase(task, s),
		CaseMaterial:     caseMaterial,
		BandMaterial:     extract.BandMaterial(s.Title, specs),
		Movement:         extract.Movement(s.Title, specs),
		DialColour:       extract.DialColor(s.Title, specs),
		YearManufactured: year,
		Brand:            brand,
		Model:            extract.WatchModel(s.Title, specs, brand),
	}
	if err := p.store.InsertWatchMatch(ctx, m); err != nil {
		if store.IsUniqueViolation(err) {
			return
		}
		p.log.Error("insert watch match", "task", task.ID, "item", s.ItemID, "error", err)
		return
	}
	stats.Saved++
	matchesTotal.WithLabelValues(string(model.ItemTypeWatch)).Inc()
}

func (p *Processor) classifyGemstone(ctx context.Context, task *model.Task, s *ebay.ItemSummary, detail *ebay.ItemDetail, stats *Stats) {
	if detail == nil {
		stats.DetailMissing++
		return
	}
	f := task.Gemstone
	specs := extract.NewSpecs(detail.Aspects())
	attrs := appraise.ExtractGemstone(s.Title, specs)
	attrs.Price = ebay.ParsePrice(s.Price)
	if len(s.BuyingOptions) > 0 {
		attrs.BuyFormat = s.BuyingOptions[0]
	}
	attrs.SellerFeedback = s.Seller.FeedbackScore
	attrs.SellerPercent = s.SellerPercent()
	if detail.ReturnTerms != nil {
		attrs.ReturnsKnown = true
		attrs.ReturnsAccepted = detail.ReturnTerms.ReturnsAccepted
	}

	if reason, ok := appraise.Blacklist(f, attrs); !ok {
		p.reject(ctx, task, s.ItemID, reason, stats)
		return
	}

	classification := appraise.Classify(s.CategoryID(), s.Title, specs)
	if classification == appraise.JewelryWithStone && !f.IncludeJewelry {
		// Mounted stones are a skip, not a rejection, when the task
		// hunts loose stones only.
		return
	}

	if reason, ok := appraise.FilterGemstone(f, attrs); !ok {
		p.reject(ctx, task, s.ItemID, reason, stats)
		return
	}

	deal := appraise.DealScore(f, attrs)
	risk := appraise.RiskScore(attrs)
	if f.MinDealScore > 0 && deal < f.MinDealScore {
		p.reject(ctx, task, s.ItemID, fmt.Sprintf("Deal score %.0f below minimum %.0f", deal, f.MinDealScore), stats)
		return
	}
	if f.MaxRiskScore > 0 && risk > f.MaxRiskScore {
		p.reject(ctx, task, s.ItemID, fmt.Sprintf("Risk score %.0f above maximum %.0f", risk, f.MaxRiskScore), stats)
		return
	}

	m := &model.GemstoneMatch{
		MatchBase:      p.matchBase(task, s),
		StoneType:      attrs.StoneType,
		Shape:          attrs.Shape,
		Carat:          attrs.Carat,
		Colour:         attrs.Colour,
		Clarity:        attrs.Clarity,
		CutGrade:       attrs.CutGrade,
		CertLab:        attrs.CertLab,
		Treatment:      attrs.Treatment,
		IsNatural:      attrs.IsNatural,
		Classification: classification,
		DealScore:      deal,
		RiskScore:      risk,
		AIScore:        deal / 100,
		AIReasoning:    appraise.Reasoning(attrs, deal, risk, classification),
	}
	if err := p.store.InsertGemstoneMatch(ctx, m); err != nil {
		if store.IsUniqueViolation(err) {
			return
		}
		p.log.Error("insert gemstone match", "task", task.ID, "item", s.ItemID, "error", err)
		return
	}
	stats.Saved++
	matchesTotal.WithLabelValues(string(model.ItemTypeGemstone)).Inc()
	p.notifier.GemstoneMatch(ctx, m)
}
