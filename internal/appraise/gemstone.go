package appraise

import (
	"fmt"
	"strings"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/extract"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// Classification of a gemstone listing.
const (
	LooseStone       = "LOOSE_STONE"
	JewelryWithStone = "JEWELRY_WITH_STONE"
)

// Loose-stone leaf categories on the upstream marketplace.
var looseStoneCategories = map[string]bool{
	"10183": true, "164394": true, "164395": true, "179254": true,
}

// Title words that mark a mounted stone.
var jewelrySettingWords = []string{
	"ring", "necklace", "pendant", "bracelet", "earring", "earrings",
	"brooch", "bangle", "charm", "mounted", "setting", "set in",
}

// Spec fields that only mounted pieces carry.
var mountFields = []string{"ring size", "setting style", "band width", "metal purity"}

// GemstoneAttrs is everything the scoring model reads about one listing.
type GemstoneAttrs struct {
	StoneType     string
	Shape         string
	Carat         float64
	CaratKnown    bool
	Colour        string
	Clarity       string
	CutGrade      string
	CertLab       string
	CertTier      string
	Treatment     string
	TreatmentTier string
	HasDimensions bool
	IsNatural     bool
	HasSimulant   bool

	Title           string
	Price           float64
	BuyFormat       string
	SellerFeedback  int
	SellerPercent   float64
	ReturnsAccepted bool
	ReturnsKnown    bool
}

// ExtractGemstone pulls the full stone attribute set from a listing.
func ExtractGemstone(title string, specs extract.Specs) GemstoneAttrs {
	a := GemstoneAttrs{Title: title}
	a.StoneType = extract.StoneType(title, specs)
	a.Shape = extract.StoneShape(title, specs)
	a.Carat, a.CaratKnown = extract.Carat(title, specs)
	a.Colour = extract.StoneColor(title, specs, a.StoneType)
	a.Clarity = extract.Clarity(title, specs)
	a.CutGrade = extract.CutGrade(title, specs)
	a.CertLab, a.CertTier = extract.CertLab(title, specs)
	a.Treatment, a.TreatmentTier = extract.Treatment(title, specs)
	_, _, _, a.HasDimensions = extract.Dimensions(title, specs)
	a.IsNatural = extract.IsNatural(title, specs)
	a.HasSimulant = extract.HasSimulant(title, specs)
	return a
}

// Blacklist rejects simulants always and lab-grown stones unless the task
// allows them.
func Blacklist(f *model.GemstoneFilters, a GemstoneAttrs) (reason string, ok bool) {
	if a.HasSimulant {
		return "Simulant material detected", false
	}
	if !a.IsNatural && !f.AllowLabGrown {
		return "Lab-grown stone and task excludes lab-grown", false
	}
	return "", true
}

// Classify decides loose stone vs mounted jewelry. Category is checked
// first, then mount-only spec fields, then setting words in the title.
func Classify(categoryID, title string, specs extract.Specs) string {
	if looseStoneCategories[categoryID] {
		return LooseStone
	}
	if specs.Get(mountFields...) != "" {
		return JewelryWithStone
	}
	lower := strings.ToLower(title)
	for _, w := range jewelrySettingWords {
		if strings.Contains(lower, w) {
			return JewelryWithStone
		}
	}
	return LooseStone
}

// FilterGemstone checks the extracted attributes against the task's
// constraints. Unknown attributes fail closed only for carat when a range
// is set; the list filters require an explicit match.
func FilterGemstone(f *model.GemstoneFilters, a GemstoneAttrs) (reason string, ok bool) {
	if len(f.StoneTypes) > 0 || len(f.AdditionalStoneTypes) > 0 {
		allowed := append(append([]string{}, f.StoneTypes...), f.AdditionalStoneTypes...)
		if a.StoneType == "" || !containsAnyEqual(a.StoneType, allowed) {
			return fmt.Sprintf("Stone type %q not in task set", a.StoneType), false
		}
	}
	if len(f.Shapes) > 0 && a.Shape != "" && !containsAnyEqual(a.Shape, f.Shapes) {
		return fmt.Sprintf("Shape %q not in task set", a.Shape), false
	}
	if f.CaratMin > 0 {
		if !a.CaratKnown {
			return "Carat unknown with minimum set", false
		}
		if a.Carat < f.CaratMin {
			return fmt.Sprintf("Carat %.2f below minimum %.2f", a.Carat, f.CaratMin), false
		}
	}
	if f.CaratMax > 0 && a.CaratKnown && a.Carat > f.CaratMax {
		return fmt.Sprintf("Carat %.2f above maximum %.2f", a.Carat, f.CaratMax), false
	}
	if len(f.Colors) > 0 && a.Colour != "" && !containsAnyEqual(a.Colour, f.Colors) {
		return fmt.Sprintf("Color %q not in task set", a.Colour), false
	}
	if len(f.Clarities) > 0 && a.Clarity != "" && !containsAnyEqual(a.Clarity, f.Clarities) {
		return fmt.Sprintf("Clarity %q not in task set", a.Clarity), false
	}
	if len(f.Certifications) > 0 {
		if a.CertLab == "" || !containsAnyEqual(a.CertLab, f.Certifications) {
			return fmt.Sprintf("Certification %q not in task set", a.CertLab), false
		}
	}
	if len(f.Treatments) > 0 && a.Treatment != "" && !containsAnyEqual(a.Treatment, f.Treatments) {
		return fmt.Sprintf("Treatment %q not in task set", a.Treatment), false
	}
	if f.NaturalOnly && !a.IsNatural {
		return "Not natural with natural-only set", false
	}
	return "", true
}

func containsAnyEqual(value string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(value, s) {
			return true
		}
	}
	return false
}

// Deal score weights. The raw maximum is normalized to 100.
const (
	dealMatchMax        = 25.0
	dealSellerMax       = 15.0
	dealFormatMax       = 10.0
	dealCertMax         = 15.0
	dealCompletenessMax = 10.0
	dealNaturalBonus    = 5.0
	dealNoTreatBonus    = 5.0
	dealRawMax          = dealMatchMax + dealSellerMax + dealFormatMax +
		dealCertMax + dealCompletenessMax + dealNaturalBonus + dealNoTreatBonus
)

// DealScore rates a surviving gemstone listing from 0 to 100.
func DealScore(f *model.GemstoneFilters, a GemstoneAttrs) float64 {
	raw := matchQuality(f, a) + sellerQuality(a) + formatScore(a.BuyFormat) +
		certScore(a.CertTier) + completeness(a)
	if a.IsNatural {
		raw += dealNaturalBonus
	}
	if a.TreatmentTier == "" || a.TreatmentTier == extract.TreatmentNone {
		raw += dealNoTreatBonus
	}
	return clamp(round2(raw / dealRawMax * 100))
}

// matchQuality is the fraction of the task's specified criteria the
// listing explicitly satisfies, scaled to the match weight. A task with
// no criteria scores full marks.
func matchQuality(f *model.GemstoneFilters, a GemstoneAttrs) float64 {
	specified, satisfied := 0, 0
	count := func(set bool, hit bool) {
		if set {
			specified++
			if hit {
				satisfied++
			}
		}
	}
	count(len(f.StoneTypes) > 0, a.StoneType != "" && containsAnyEqual(a.StoneType, append(append([]string{}, f.StoneTypes...), f.AdditionalStoneTypes...)))
	count(len(f.Shapes) > 0, a.Shape != "" && containsAnyEqual(a.Shape, f.Shapes))
	count(f.CaratMin > 0 || f.CaratMax > 0, a.CaratKnown)
	count(len(f.Colors) > 0, a.Colour != "" && containsAnyEqual(a.Colour, f.Colors))
	count(len(f.Clarities) > 0, a.Clarity != "" && containsAnyEqual(a.Clarity, f.Clarities))
	count(len(f.Certifications) > 0, a.CertLab != "" && containsAnyEqual(a.CertLab, f.Certifications))
	if specified == 0 {
		return dealMatchMax
	}
	return dealMatchMax * float64(satisfied) / float64(specified)
}

func sellerQuality(a GemstoneAttrs) float64 {
	switch {
	case a.SellerFeedback >= 1000 && a.SellerPercent >= 99:
		return dealSellerMax
	case a.SellerFeedback >= 500 && a.SellerPercent >= 98:
		return 10
	case a.SellerFeedback >= 100 && a.SellerPercent >= 95:
		return 5
	}
	return 0
}

func formatScore(buyFormat string) float64 {
	switch strings.ToUpper(buyFormat) {
	case "BEST_OFFER":
		return dealFormatMax
	case "FIXED_PRICE":
		return 7
	case "AUCTION":
		return 4
	}
	return 0
}

func certScore(tier string) float64 {
	switch tier {
	case extract.LabTierPremium:
		return dealCertMax
	case extract.LabTierStandard:
		return 10
	case extract.LabTierBudget:
		return 5
	}
	return 0
}

func completeness(a GemstoneAttrs) float64 {
	score := 0.0
	for _, present := range []bool{
		a.Shape != "", a.Colour != "", a.Clarity != "",
		a.CutGrade != "", a.HasDimensions,
	} {
		if present {
			score += 2
		}
	}
	return score
}

// Risk score penalties.
const (
	riskSynthetic      = 30.0
	riskNoReturns      = 20.0
	riskMissingEach    = 5.0
	riskMissingCap     = 20.0
	riskHeavyTreatment = 15.0
	riskVague          = 10.0
	riskPriceTooLow    = 10.0
)

// Title phrases that read as the seller hedging.
var vaguePhrases = []string{
	"as is", "as-is", "untested", "not sure", "unsure", "unknown origin",
	"estate find", "might be", "possibly", "no idea", "???",
}

// Per-carat floor below which the price itself is a red flag.
func priceFloorPerCarat(stoneType string) float64 {
	if strings.EqualFold(stoneType, "diamond") {
		return 100
	}
	return 20
}

// RiskScore rates the red flags of a gemstone listing from 0 to 100.
func RiskScore(a GemstoneAttrs) float64 {
	risk := 0.0
	if !a.IsNatural || a.HasSimulant {
		risk += riskSynthetic
	}
	if a.ReturnsKnown && !a.ReturnsAccepted {
		risk += riskNoReturns
	}
	missing := 0.0
	for _, absent := range []bool{
		!a.CaratKnown, a.Colour == "", a.Clarity == "",
		a.CertLab == "", !a.HasDimensions,
	} {
		if absent {
			missing += riskMissingEach
		}
	}
	if missing > riskMissingCap {
		missing = riskMissingCap
	}
	risk += missing
	if a.TreatmentTier == extract.TreatmentHeavy {
		risk += riskHeavyTreatment
	}
	switch {
	case a.SellerFeedback < 100:
		risk += 15
	case a.SellerFeedback < 500:
		risk += 10
	case a.SellerFeedback < 1000:
		risk += 5
	}
	lower := strings.ToLower(a.Title)
	for _, p := range vaguePhrases {
		if strings.Contains(lower, p) {
			risk += riskVague
			break
		}
	}
	if a.CaratKnown && a.Carat > 0 && a.Price > 0 &&
		a.Price/a.Carat < priceFloorPerCarat(a.StoneType) {
		risk += riskPriceTooLow
	}
	return clamp(round2(risk))
}

// Reasoning renders the scoring outcome for the match record.
func Reasoning(a GemstoneAttrs, deal, risk float64, classification string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "deal=%.0f risk=%.0f %s", deal, risk, classification)
	if a.StoneType != "" {
		fmt.Fprintf(&b, "; %s", a.StoneType)
	}
	if a.CaratKnown {
		fmt.Fprintf(&b, " %.2fct", a.Carat)
	}
	if a.CertLab != "" {
		fmt.Fprintf(&b, "; %s certified (%s tier)", a.CertLab, a.CertTier)
	} else {
		b.WriteString("; uncertified")
	}
	if !a.IsNatural {
		b.WriteString("; lab-grown")
	}
	if a.TreatmentTier == extract.TreatmentHeavy {
		fmt.Fprintf(&b, "; heavy treatment (%s)", a.Treatment)
	}
	fmt.Fprintf(&b, "; seller %d@%.1f%%", a.SellerFeedback, a.SellerPercent)
	return b.String()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
