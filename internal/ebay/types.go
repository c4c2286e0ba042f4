package ebay

import (
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// Money is the upstream's {value, currency} pair. Value arrives as a
// string on the wire.
type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Category is one node of an item's category path.
type Category struct {
	CategoryID string `json:"categoryId"`
}

// Seller is the listing seller's reputation summary.
type Seller struct {
	Username           string `json:"username"`
	FeedbackScore      int    `json:"feedbackScore"`
	FeedbackPercentage string `json:"feedbackPercentage"`
}

// ShippingOption carries the first-quoted shipping cost.
type ShippingOption struct {
	ShippingCost Money `json:"shippingCost"`
}

// ReturnTerms is the subset of the returns policy the risk model reads.
type ReturnTerms struct {
	ReturnsAccepted bool `json:"returnsAccepted"`
}

// ItemSummary is one search result.
type ItemSummary struct {
	ItemID           string           `json:"itemId"`
	Title            string           `json:"title"`
	Price            Money            `json:"price"`
	ItemWebURL       string           `json:"itemWebUrl"`
	ItemCreationDate time.Time        `json:"itemCreationDate"`
	Categories       []Category       `json:"categories"`
	BuyingOptions    []string         `json:"buyingOptions"`
	Seller           Seller           `json:"seller"`
	ShippingOptions  []ShippingOption `json:"shippingOptions"`
	Condition        string           `json:"condition"`
	ConditionID      string           `json:"conditionId"`
}

// searchResponse is the wire shape of the search endpoint.
type searchResponse struct {
	ItemSummaries []ItemSummary `json:"itemSummaries"`
	Total         int           `json:"total"`
}

// LocalizedAspect is one name/value specific on an item detail.
type LocalizedAspect struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ItemDetail is one item's detail document, possibly served from cache.
type ItemDetail struct {
	ItemID           string            `json:"itemId"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	LocalizedAspects []LocalizedAspect `json:"localizedAspects"`
	ReturnTerms      *ReturnTerms      `json:"returnTerms"`
	FromCache        bool              `json:"-"`
}

// bulkResponse is the wire shape of the bulk item endpoint.
type bulkResponse struct {
	Items []ItemDetail `json:"items"`
}

// Aspects converts the detail's specifics to the shared model shape.
func (d *ItemDetail) Aspects() []model.Aspect {
	out := make([]model.Aspect, 0, len(d.LocalizedAspects))
	for _, a := range d.LocalizedAspects {
		out = append(out, model.Aspect{Name: a.Name, Value: a.Value})
	}
	return out
}

// detailFromCache rebuilds a detail document from a cache row.
func detailFromCache(item *model.CachedItem) *ItemDetail {
	d := &ItemDetail{
		ItemID:    item.EbayItemID,
		Title:     item.Title,
		FromCache: true,
	}
	for _, a := range item.Aspects {
		d.LocalizedAspects = append(d.LocalizedAspects, LocalizedAspect{Name: a.Name, Value: a.Value})
	}
	return d
}
