package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/catalog"
)

// Spec field variants for the gemstone family.
var (
	stoneFields     = []string{"main stone", "stone", "gemstone", "gem type", "stone type"}
	secondaryFields = []string{"secondary stone", "accent stone", "side stones"}
	stoneShapeField = []string{"stone shape", "shape", "cut shape", "gemstone shape"}
	caratFields     = []string{"total carat weight", "carat weight", "carat", "tcw", "ct weight", "stone weight"}
	colorFields     = []string{"color", "colour", "main stone color", "main stone colour", "stone color", "color grade"}
	clarityFields   = []string{"clarity", "clarity grade", "stone clarity"}
	cutFields       = []string{"cut grade", "cut"}
	certFields      = []string{"certification", "certificate", "certified by", "grading report", "lab", "report"}
	treatmentFields = []string{"treatment", "enhancement", "stone treatment"}
	creationFields  = []string{"natural/lab-created", "creation method", "origin", "natural or lab created"}
	dimensionFields = []string{"dimensions", "measurements", "stone measurements", "size"}
)

// StoneType finds the stone, longest catalogue entry first. The catalogue
// value is returned in title case ("Star Sapphire").
func StoneType(title string, specs Specs) string {
	if v := specs.Get(stoneFields...); v != "" {
		if hit := firstMatch(v, catalog.GetStones().Types); hit != "" {
			return titleCase(hit)
		}
	}
	if hit := firstMatch(title, catalog.GetStones().Types); hit != "" {
		return titleCase(hit)
	}
	return ""
}

// SecondaryStone reports an accent stone from the secondary spec fields.
func SecondaryStone(specs Specs) string {
	if v := specs.Get(secondaryFields...); v != "" {
		if hit := firstMatch(v, catalog.GetStones().Types); hit != "" {
			return titleCase(hit)
		}
	}
	return ""
}

// StoneShape finds the cut shape, longest catalogue entry first.
func StoneShape(title string, specs Specs) string {
	if v := specs.Get(stoneShapeField...); v != "" {
		if hit := firstMatch(v, catalog.GetStones().Shapes); hit != "" {
			return titleCase(hit)
		}
	}
	if hit := firstMatch(title, catalog.GetStones().Shapes); hit != "" {
		return titleCase(hit)
	}
	return ""
}

var (
	caratDecimalRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:ct|cts|carat|carats|tcw|ctw)\b`)
	caratFractionRe = regexp.MustCompile(`(?i)(?:(\d+)\s+)?(\d+)\s*/\s*(\d+)\s*(?:ct|cts|carat|carats)\b`)
	caratPointsRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:pt|pts|points?)\b`)
	bareDecimalRe   = regexp.MustCompile(`(\d+\.\d+)`)
)

// Carat extracts the stone weight in carats. Supports decimal ("1.52 ct"),
// fraction ("1 1/2 ct"), point ("152 points"), and tcw formats.
func Carat(title string, specs Specs) (float64, bool) {
	if v := specs.Get(caratFields...); v != "" {
		if c, ok := caratFromText(v); ok {
			return c, true
		}
		// Spec fields often hold a bare number with the unit in the name.
		if m := bareDecimalRe.FindString(v); m != "" {
			if c, err := strconv.ParseFloat(m, 64); err == nil && c > 0 && c < 10000 {
				return round2(c), true
			}
		}
	}
	return caratFromText(title)
}

func caratFromText(text string) (float64, bool) {
	if m := caratFractionRe.FindStringSubmatch(text); m != nil {
		whole := 0.0
		if m[1] != "" {
			whole, _ = strconv.ParseFloat(m[1], 64)
		}
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den > 0 {
			return round2(whole + num/den), true
		}
	}
	if m := caratDecimalRe.FindStringSubmatch(text); m != nil {
		if c, err := strconv.ParseFloat(m[1], 64); err == nil {
			return round2(c), true
		}
	}
	if m := caratPointsRe.FindStringSubmatch(text); m != nil {
		if pts, err := strconv.ParseFloat(m[1], 64); err == nil {
			return round2(pts / 100), true
		}
	}
	return 0, false
}

// diamondGradeRe matches letter color grades like "F", "G-H", "color: D".
var diamondGradeRe = regexp.MustCompile(`(?i)\b([d-n])(?:\s*-\s*[d-n])?\b\s*(?:color|colour)|(?:color|colour)[:\s]+\b([d-n])\b`)

// StoneColor extracts color. Diamonds use letter grades; colored stones
// use the named-color catalogue.
func StoneColor(title string, specs Specs, stoneType string) string {
	text := specs.Get(colorFields...)
	if text == "" {
		text = title
	}
	if strings.EqualFold(stoneType, "diamond") {
		if m := diamondGradeRe.FindStringSubmatch(text + " "); m != nil {
			for _, g := range m[1:] {
				if g != "" {
					return strings.ToUpper(g)
				}
			}
		}
		// A spec field holding just the grade letter.
		trimmed := strings.ToUpper(strings.TrimSpace(text))
		if len(trimmed) == 1 && trimmed[0] >= 'D' && trimmed[0] <= 'Z' {
			return trimmed
		}
	}
	if hit := firstMatch(text, catalog.GetStones().Colors); hit != "" {
		return titleCase(hit)
	}
	if !strings.EqualFold(stoneType, "diamond") {
		if hit := firstMatch(title, catalog.GetStones().Colors); hit != "" {
			return titleCase(hit)
		}
	}
	return ""
}

// Clarity extracts a GIA-scale grade, falling back to eye-clean language.
func Clarity(title string, specs Specs) string {
	text := specs.Get(clarityFields...)
	if text == "" {
		text = title
	}
	for _, grade := range catalog.GetStones().ClarityGrades {
		if containsToken(text, grade) {
			return strings.ToUpper(grade)
		}
	}
	for _, phrase := range catalog.GetStones().ClarityLanguage {
		if containsFold(text, phrase) {
			return titleCase(phrase)
		}
	}
	return ""
}

// CutGrade extracts the cut grade.
func CutGrade(title string, specs Specs) string {
	text := specs.Get(cutFields...)
	if text == "" {
		text = title
	}
	for _, grade := range catalog.GetStones().CutGrades {
		if containsFold(text, grade) {
			return titleCase(grade)
		}
	}
	return ""
}

// Certification tiers, best first.
const (
	LabTierPremium  = "premium"
	LabTierStandard = "standard"
	LabTierBudget   = "budget"
)

// CertLab extracts the certification lab and its tier.
func CertLab(title string, specs Specs) (lab, tier string) {
	text := specs.Get(certFields...) + " " + title
	labs := catalog.GetStones().Labs
	for _, l := range labs.Premium {
		if containsToken(text, l) {
			return strings.ToUpper(l), LabTierPremium
		}
	}
	for _, l := range labs.Standard {
		if containsToken(text, l) {
			return strings.ToUpper(l), LabTierStandard
		}
	}
	for _, l := range labs.Budget {
		if containsToken(text, l) {
			return strings.ToUpper(l), LabTierBudget
		}
	}
	return "", ""
}

// Treatment severity tiers.
const (
	TreatmentNone     = "none"
	TreatmentStandard = "standard"
	TreatmentHeavy    = "heavy"
)

// Treatment extracts treatment language and its severity tier. Heavy
// treatments are checked first since their phrases often embed lighter
// ones ("heat treated" inside "diffusion heat treated").
func Treatment(title string, specs Specs) (treatment, tier string) {
	text := specs.Get(treatmentFields...) + " " + title
	t := catalog.GetStones().Treatments
	for _, phrase := range t.Heavy {
		if containsFold(text, phrase) {
			return titleCase(phrase), TreatmentHeavy
		}
	}
	for _, phrase := range t.None {
		if containsFold(text, phrase) {
			return titleCase(phrase), TreatmentNone
		}
	}
	for _, phrase := range t.Standard {
		if containsFold(text, phrase) {
			return titleCase(phrase), TreatmentStandard
		}
	}
	return "", ""
}

var (
	dims3Re = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*mm`)
	dims2Re = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*mm`)
	dims1Re = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*mm\b`)
)

// Dimensions extracts stone measurements in mm. Missing axes are zero.
func Dimensions(title string, specs Specs) (l, w, d float64, ok bool) {
	text := specs.Get(dimensionFields...)
	if text == "" {
		text = title
	}
	if m := dims3Re.FindStringSubmatch(text); m != nil {
		l, _ = strconv.ParseFloat(m[1], 64)
		w, _ = strconv.ParseFloat(m[2], 64)
		d, _ = strconv.ParseFloat(m[3], 64)
		return l, w, d, true
	}
	if m := dims2Re.FindStringSubmatch(text); m != nil {
		l, _ = strconv.ParseFloat(m[1], 64)
		w, _ = strconv.ParseFloat(m[2], 64)
		return l, w, 0, true
	}
	if m := dims1Re.FindStringSubmatch(text); m != nil {
		l, _ = strconv.ParseFloat(m[1], 64)
		return l, 0, 0, true
	}
	return 0, 0, 0, false
}

// IsNatural reports whether the stone reads as natural (no lab-growth or
// synthetic language). Absent any origin language, natural is assumed.
func IsNatural(title string, specs Specs) bool {
	text := strings.ToLower(specs.Get(creationFields...) + " " + title)
	for _, term := range catalog.GetStones().LabTerms {
		if containsFold(text, term) {
			return false
		}
	}
	return true
}

// HasSimulant reports simulant language (CZ, moissanite, glass).
func HasSimulant(title string, specs Specs) bool {
	text := specs.Get(stoneFields...) + " " + specs.Get(creationFields...) + " " + title
	for _, term := range catalog.GetStones().Simulants {
		if containsToken(text, term) {
			return true
		}
	}
	return false
}

// StonePresence is the backup check for jewelry tasks: consulted only when
// all stone spec fields are empty, it scans the title for stone keywords
// and returns the first hit.
func StonePresence(title string) string {
	for _, kw := range catalog.GetStones().PresenceKeywords {
		if containsToken(title, kw) {
			return kw
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
