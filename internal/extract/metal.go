package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/catalog"
)

// Spec field variants for metal identity and purity.
var (
	metalFields  = []string{"metal", "metal type", "base metal", "material", "main metal"}
	purityFields = []string{"metal purity", "purity", "fineness", "gold purity", "karat"}
)

// karatRe matches "14k", "14 kt", "18ct", "9 carat" and friends. British
// listings use ct/carat for gold purity.
var karatRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:k(?:t|arat)?|c(?:t|arat))\b`)

// finenessToKarat maps millesimal gold fineness marks to karat.
var finenessToKarat = map[string]int{
	"333": 8, "375": 9, "417": 10, "585": 14, "750": 18, "916": 22, "999": 24,
}

// MetalType classifies the listing's metal. Plated, filled, tone, and
// vermeil language disqualifies the metal it decorates; two-tone and
// tri-tone are allowed. Empty string means no solid precious metal found.
func MetalType(title string, specs Specs) string {
	text := strings.ToLower(title + " " + specs.Get(metalFields...) + " " + specs.Get(purityFields...))

	for _, metal := range []string{"gold", "platinum", "palladium", "silver"} {
		if !mentionsMetal(text, metal) {
			continue
		}
		if isPlatedMetal(text, metal) {
			continue
		}
		return metal
	}
	return ""
}

func mentionsMetal(text, metal string) bool {
	for _, kw := range catalog.GetMetals().Keywords[metal] {
		if containsToken(text, kw) {
			return true
		}
	}
	// Purity marks imply the metal even without its name.
	switch metal {
	case "gold":
		if karatRe.MatchString(text) {
			return true
		}
		for mark := range finenessToKarat {
			if mark != "999" && containsToken(text, mark) {
				return true
			}
		}
	case "silver":
		if containsToken(text, "925") || containsToken(text, "sterling") {
			return true
		}
	case "platinum":
		if containsToken(text, "pt950") || containsToken(text, "pt900") {
			return true
		}
	}
	return false
}

// isPlatedMetal reports whether every mention of the metal is guarded by
// plated/filled/tone language. A tone allowance ("two-tone") or an
// explicit solid marker rescues the piece.
func isPlatedMetal(text, metal string) bool {
	m := catalog.GetMetals()

	guarded := false
	for _, guard := range m.PlateGuards {
		// Metal-specific guards ("gold plated") only disqualify their own
		// metal; bare guards ("vermeil", "hge") disqualify any.
		if owner := guardOwner(guard); owner != "" && owner != metal {
			continue
		}
		if strings.Contains(text, guard) {
			guarded = true
			break
		}
	}
	if !guarded {
		return false
	}
	for _, allowance := range m.ToneAllowances {
		if strings.Contains(text, allowance) {
			return false
		}
	}
	if strings.Contains(text, "solid "+metal) {
		return false
	}
	return true
}

func guardOwner(guard string) string {
	switch guard {
	case "vermeil", "gilt", "gilded", "rolled gold":
		// Gold-wash language over a solid base metal.
		return "gold"
	}
	for _, name := range catalog.MetalNames() {
		if strings.HasPrefix(guard, name) {
			return name
		}
	}
	return ""
}

// Karat extracts the gold karat from purity specs or the title. Zero means
// not found or outside the accepted set.
func Karat(title string, specs Specs) int {
	if k := parseKarat(specs.Get(purityFields...)); k != 0 {
		return k
	}
	return parseKarat(title)
}

func parseKarat(text string) int {
	if text == "" {
		return 0
	}
	if m := karatRe.FindStringSubmatch(text); m != nil {
		k, err := strconv.Atoi(m[1])
		if err == nil && acceptedKarat(k) {
			return k
		}
	}
	for mark, k := range finenessToKarat {
		if containsToken(text, mark) {
			return k
		}
	}
	return 0
}

func acceptedKarat(k int) bool {
	for _, allowed := range catalog.GetMetals().Purity.GoldKarats {
		if k == allowed {
			return true
		}
	}
	return false
}

// SilverPurity reads the silver fineness from text, defaulting to sterling.
func SilverPurity(title string, specs Specs) int {
	text := strings.ToLower(title + " " + specs.Get(purityFields...) + " " + specs.Get(metalFields...))
	for _, p := range catalog.GetMetals().Purity.Silver {
		if containsToken(text, strconv.Itoa(p)) {
			return p
		}
	}
	switch {
	case strings.Contains(text, "fine silver"):
		return 999
	case strings.Contains(text, "coin silver"):
		return 900
	}
	return catalog.GetMetals().Purity.SilverDefault
}

// PlatinumPurity reads the platinum fineness from text, defaulting to 950.
func PlatinumPurity(title string, specs Specs) int {
	text := strings.ToLower(title + " " + specs.Get(purityFields...) + " " + specs.Get(metalFields...))
	for _, p := range catalog.GetMetals().Purity.Platinum {
		mark := strconv.Itoa(p)
		if containsToken(text, mark) || strings.Contains(text, "pt"+mark) {
			return p
		}
	}
	return catalog.GetMetals().Purity.PlatinumDefault
}

// PalladiumPurity reads the palladium fineness from text, defaulting to 950.
func PalladiumPurity(title string, specs Specs) int {
	text := strings.ToLower(title + " " + specs.Get(purityFields...) + " " + specs.Get(metalFields...))
	for _, p := range catalog.GetMetals().Purity.Palladium {
		if containsToken(text, strconv.Itoa(p)) {
			return p
		}
	}
	return catalog.GetMetals().Purity.PalladiumDefault
}

// HasKaratMarker reports whether a title carries an explicit karat or
// fineness mark, used when a gold task requires marked pieces only.
func HasKaratMarker(title string) bool {
	text := strings.ToLower(title)
	for _, marker := range catalog.GetMetals().KaratMarkers {
		if containsToken(text, marker) {
			return true
		}
	}
	return false
}
