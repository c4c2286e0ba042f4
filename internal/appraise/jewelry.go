// Package appraise turns extracted listing attributes into accept/reject
// decisions and scores. Everything here is pure: callers feed in the title,
// item specifics, and price data, and get back a verdict.
package appraise

import (
	"fmt"
	"strings"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/catalog"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/extract"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// RefinerPayout is the fraction of melt value a refiner actually pays out.
// The scrap gate compares payout against half the landed cost.
const RefinerPayout = 0.97

// Spec fields consulted by the jewelry filter.
var (
	jewelryMetalFields = []string{"base metal", "metal", "metal type"}
	jewelryStoneFields = []string{"main stone", "secondary stone", "stone"}
	purityField        = []string{"metal purity", "purity", "fineness"}
	brandField         = []string{"brand", "designer", "maker"}
	jewelryColorField  = []string{"color", "colour", "metal color", "metal colour"}
	eraField           = []string{"era", "time period manufactured", "vintage era", "decade"}
	settingField       = []string{"setting style", "setting", "style"}
	featureField       = []string{"features", "feature", "embellishment"}
)

// Values in a stone field that mean "no stone".
var noStoneValues = map[string]bool{
	"": true, "none": true, "no stone": true, "no stones": true,
	"n/a": true, "na": true, "without stone": true,
}

// FilterJewelry is the item-specifics gate run after detail enrichment.
// It returns ok=false with a rejection reason when the listing fails any
// of the task's jewelry constraints.
func FilterJewelry(f *model.JewelryFilters, title string, specs extract.Specs) (reason string, ok bool) {
	lowerTitle := strings.ToLower(title)

	// Plated, filled, or tone language in the metal fields disqualifies
	// outright; two-tone and tri-tone solid pieces are fine.
	metalVal := specs.Get(jewelryMetalFields...)
	for _, text := range []string{metalVal, lowerTitle} {
		if text == "" {
			continue
		}
		if guard := plateGuardIn(text); guard != "" {
			return fmt.Sprintf("Plated or filled metal: %q", guard), false
		}
	}

	// Any populated stone field rejects; when all three are empty the
	// title keyword list is the backup check.
	stoneSeen := false
	for _, field := range jewelryStoneFields {
		v := strings.TrimSpace(specs.Get(field))
		if v != "" {
			stoneSeen = true
		}
		if noStoneValues[strings.ToLower(v)] {
			continue
		}
		return fmt.Sprintf("Has stone in specs: %s=%q", field, v), false
	}
	if !stoneSeen {
		if kw := extract.StonePresence(title); kw != "" {
			return fmt.Sprintf("Has stone in title: %q", kw), false
		}
	}

	if len(f.Purities) > 0 {
		if r, pass := purityAllowed(f.Purities, title, specs); !pass {
			return r, false
		}
	}

	for _, check := range []struct {
		selected []string
		fields   []string
		label    string
	}{
		{f.Brands, brandField, "brand"},
		{f.Colors, jewelryColorField, "color"},
		{f.Eras, eraField, "era"},
		{f.SettingStyles, settingField, "setting style"},
		{f.Features, featureField, "features"},
	} {
		if len(check.selected) == 0 {
			continue
		}
		text := specs.Get(check.fields...)
		if text == "" {
			text = lowerTitle
		}
		if !containsAny(text, check.selected) {
			return fmt.Sprintf("No selected %s found", check.label), false
		}
	}

	if f.WeightMinG > 0 || f.WeightMaxG > 0 {
		w, found := extract.WeightGrams(specs, title, "")
		if found {
			if f.WeightMinG > 0 && w < f.WeightMinG {
				return fmt.Sprintf("Weight %.2fg below minimum %.2fg", w, f.WeightMinG), false
			}
			if f.WeightMaxG > 0 && w > f.WeightMaxG {
				return fmt.Sprintf("Weight %.2fg above maximum %.2fg", w, f.WeightMaxG), false
			}
		}
	}

	return "", true
}

// plateGuardIn returns the first plate/tone guard phrase found in text,
// skipping the tone allowances (two-tone, tri-tone).
func plateGuardIn(text string) string {
	lower := strings.ToLower(text)
	for _, allow := range catalog.GetMetals().ToneAllowances {
		if strings.Contains(lower, allow) {
			return ""
		}
	}
	for _, guard := range catalog.GetMetals().PlateGuards {
		if strings.Contains(lower, guard) {
			return guard
		}
	}
	return ""
}

// purityAllowed checks the task's selected purities against the listing.
// When a karat number parses out of the purity field or title it is
// compared numerically; otherwise the raw strings are compared.
func purityAllowed(selected []string, title string, specs extract.Specs) (string, bool) {
	karat := extract.Karat(title, specs)
	if karat > 0 {
		for _, sel := range selected {
			if selKarat := leadingInt(sel); selKarat == karat {
				return "", true
			}
		}
		return fmt.Sprintf("Karat %dk not in selected purities", karat), false
	}
	text := specs.Get(purityField...)
	if text == "" {
		text = strings.ToLower(title)
	}
	if containsAny(text, selected) {
		return "", true
	}
	return "No selected purity found", false
}

func leadingInt(s string) int {
	n := 0
	seen := false
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		seen = true
	}
	if !seen {
		return 0
	}
	return n
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// JewelryAppraisal is the scrap valuation of a surviving jewelry listing.
type JewelryAppraisal struct {
	MetalType   string
	Karat       int // karat for gold; fineness for the white metals
	WeightG     float64
	MeltValue   float64
	ProfitScrap float64
}

// IdentifyMetal detects the metal and its purity from a listing. For gold
// the purity is the karat; silver, platinum, and palladium report fineness
// with the catalogue defaults when unmarked. ok is false when no solid
// precious metal is detected or the karat is off the accepted set.
func IdentifyMetal(title string, specs extract.Specs) (metal string, purity int, ok bool) {
	metal = extract.MetalType(title, specs)
	switch metal {
	case "gold":
		karat := extract.Karat(title, specs)
		if karat == 0 {
			return metal, 0, false
		}
		return metal, karat, true
	case "silver":
		return metal, extract.SilverPurity(title, specs), true
	case "platinum":
		return metal, extract.PlatinumPurity(title, specs), true
	case "palladium":
		return metal, extract.PalladiumPurity(title, specs), true
	}
	return "", 0, false
}

// Melt computes the melt value from a per-gram price and a weight.
func Melt(pricePerGram, weightG float64) float64 {
	return round2(pricePerGram * weightG)
}

// ScrapGate applies the profit gate: the refiner break-even must exceed
// half the landed cost. Returns the scrap profit and whether the listing
// survives. The gate is monotone in price: raising the price can only
// flip a pass into a reject, never the reverse.
func ScrapGate(meltValue, price, shipping float64) (profit float64, ok bool) {
	totalCost := price + shipping
	profit = round2(meltValue - totalCost)
	breakEven := meltValue * RefinerPayout
	return profit, breakEven > 0.5*totalCost
}

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
