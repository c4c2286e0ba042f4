// Package model defines the records shared between the backing store, the
// upstream client, and the task pipeline.
package model

import (
	"fmt"
	"time"
)

// ItemType selects which hunting domain a task operates in.
type ItemType string

const (
	ItemTypeJewelry  ItemType = "jewelry"
	ItemTypeWatch    ItemType = "watch"
	ItemTypeGemstone ItemType = "gemstone"
)

// TaskStatus is the lifecycle state of a search task.
type TaskStatus string

const (
	TaskActive  TaskStatus = "active"
	TaskPaused  TaskStatus = "paused"
	TaskStopped TaskStatus = "stopped"
)

// CredentialStatus is the persisted state of an API credential.
type CredentialStatus string

const (
	CredentialOK          CredentialStatus = "ok"
	CredentialRateLimited CredentialStatus = "rate_limited"
	CredentialError       CredentialStatus = "error"
)

// MatchStatus is the review state of a persisted match.
type MatchStatus string

const (
	MatchNew       MatchStatus = "new"
	MatchReviewed  MatchStatus = "reviewed"
	MatchOffered   MatchStatus = "offered"
	MatchPurchased MatchStatus = "purchased"
	MatchPassed    MatchStatus = "passed"
)

// Credential is one upstream API key set. Unique by AppID.
type Credential struct {
	AppID          string           `json:"app_id"`
	DevID          string           `json:"dev_id"`
	CertID         string           `json:"cert_id"`
	Label          string           `json:"label"`
	Status         CredentialStatus `json:"status"`
	CallsToday     int              `json:"calls_today"`
	CallsResetDate string           `json:"calls_reset_date"`
}

// CredentialSettings is the shape of the "ebay_keys" settings value.
type CredentialSettings struct {
	Keys             []Credential `json:"keys"`
	RotationStrategy string       `json:"rotation_strategy"`
}

// Task is one user-defined search task. Exactly one of the three filter
// records is populated, matching ItemType.
type Task struct {
	ID               string
	UserID           string
	Name             string
	Status           TaskStatus
	ItemType         ItemType
	PollIntervalS    int
	LastRun          time.Time
	MinPrice         float64
	MaxPrice         float64
	ExcludeKeywords  []string
	MaxDetailFetches int // 0 means unlimited

	Jewelry  *JewelryFilters
	Watch    *WatchFilters
	Gemstone *GemstoneFilters
}

// PollInterval returns the task's poll interval, defaulting to 60 s.
func (t *Task) PollInterval() time.Duration {
	if t.PollIntervalS <= 0 {
		return 60 * time.Second
	}
	return time.Duration(t.PollIntervalS) * time.Second
}

// Due reports whether the task should run at now.
func (t *Task) Due(now time.Time) bool {
	return now.Sub(t.LastRun) >= t.PollInterval()
}

// Validate enforces the one-filter-record-per-kind invariant.
func (t *Task) Validate() error {
	switch t.ItemType {
	case ItemTypeJewelry:
		if t.Jewelry == nil || t.Watch != nil || t.Gemstone != nil {
			return fmt.Errorf("task %s: jewelry task requires exactly jewelry filters", t.ID)
		}
	case ItemTypeWatch:
		if t.Watch == nil || t.Jewelry != nil || t.Gemstone != nil {
			return fmt.Errorf("task %s: watch task requires exactly watch filters", t.ID)
		}
	case ItemTypeGemstone:
		if t.Gemstone == nil || t.Jewelry != nil || t.Watch != nil {
			return fmt.Errorf("task %s: gemstone task requires exactly gemstone filters", t.ID)
		}
	default:
		return fmt.Errorf("task %s: unknown item type %q", t.ID, t.ItemType)
	}
	return nil
}

// JewelryFilters constrain jewelry tasks.
type JewelryFilters struct {
	Metals              []string `json:"metals"`
	Purities            []string `json:"purities"`
	Brands              []string `json:"brands"`
	Colors              []string `json:"colors"`
	Eras                []string `json:"eras"`
	SettingStyles       []string `json:"setting_styles"`
	Features            []string `json:"features"`
	WeightMinG          float64  `json:"weight_min_g"`
	WeightMaxG          float64  `json:"weight_max_g"`
	Categories          []string `json:"categories"`
	Conditions          []string `json:"conditions"`
	RequireKaratMarkers bool     `json:"require_karat_markers"`
}

// WatchFilters constrain watch tasks.
type WatchFilters struct {
	Brand         string   `json:"brand"`
	Model         string   `json:"model"`
	Keywords      string   `json:"keywords"`
	YearMin       int      `json:"year_min"`
	YearMax       int      `json:"year_max"`
	CaseMaterials []string `json:"case_materials"`
	Categories    []string `json:"categories"`
	Conditions    []string `json:"conditions"`
}

// GemstoneFilters constrain gemstone tasks.
type GemstoneFilters struct {
	StoneTypes           []string `json:"stone_types"`
	AdditionalStoneTypes []string `json:"additional_stone_types"`
	Shapes               []string `json:"shapes"`
	CaratMin             float64  `json:"carat_min"`
	CaratMax             float64  `json:"carat_max"`
	Colors               []string `json:"colors"`
	Clarities            []string `json:"clarities"`
	Certifications       []string `json:"certifications"`
	Treatments           []string `json:"treatments"`
	NaturalOnly          bool     `json:"natural_only"`
	IncludeJewelry       bool     `json:"include_jewelry"`
	AllowLabGrown        bool     `json:"allow_lab_grown"`
	MinDealScore         float64  `json:"min_deal_score"`
	MaxRiskScore         float64  `json:"max_risk_score"`
	Categories           []string `json:"categories"`
	Conditions           []string `json:"conditions"`
}

// MatchBase holds the fields common to all match kinds.
type MatchBase struct {
	TaskID         string
	UserID         string
	EbayListingID  string
	EbayTitle      string
	EbayURL        string
	ListedPrice    float64
	ShippingCost   float64
	Currency       string
	BuyFormat      string
	SellerFeedback int
	FoundAt        time.Time
	Status         MatchStatus
}

// JewelryMatch is a persisted jewelry scrap candidate.
type JewelryMatch struct {
	MatchBase
	MetalType   string
	Karat       int
	WeightG     float64
	MeltValue   float64
	ProfitScrap float64
}

// WatchMatch is a persisted watch candidate.
type WatchMatch struct {
	MatchBase
	CaseMaterial     string
	BandMaterial     string
	Movement         string
	DialColour       string
	YearManufactured int
	Brand            string
	Model            string
}

// GemstoneMatch is a persisted gemstone candidate.
type GemstoneMatch struct {
	MatchBase
	StoneType      string
	Shape          string
	Carat          float64
	Colour         string
	Clarity        string
	CutGrade       string
	CertLab        string
	Treatment      string
	IsNatural      bool
	Classification string
	DealScore      float64
	RiskScore      float64
	AIScore        float64
	AIReasoning    string
}

// Rejection records a listing that failed a task's filters.
type Rejection struct {
	TaskID        string
	EbayListingID string
	Reason        string
	RejectedAt    time.Time
	ExpiresAt     time.Time
}

// Aspect is one name/value pair from an item's specifics.
type Aspect struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CachedItem is one row of the item-detail cache.
type CachedItem struct {
	EbayItemID string
	Title      string
	Aspects    []Aspect
	FetchedAt  time.Time
	ExpiresAt  time.Time
}

// MetalPrice is one (metal, purity) price point. For gold the purity column
// carries the karat; for silver, platinum, and palladium it carries the
// fineness (925, 950, ...).
type MetalPrice struct {
	MetalType    string
	Purity       int
	PricePerGram float64
	UpdatedAt    time.Time
}

// APIUsage is one append-only usage log row.
type APIUsage struct {
	AppID    string
	Endpoint string
	Calls    int
	Day      string
	LoggedAt time.Time
}
