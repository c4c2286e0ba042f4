package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/catalog"
)

// Spec field variants for the watch family.
var (
	caseFields     = []string{"case material", "case", "watch case material"}
	bandFields     = []string{"band material", "band", "strap material", "bracelet material", "band/strap material"}
	movementFields = []string{"movement", "movement type", "caliber", "calibre"}
	dialFields     = []string{"dial color", "dial colour", "dial", "face color", "face colour"}
	brandFields    = []string{"brand", "manufacturer", "maker"}
	modelFields    = []string{"model", "model name", "reference number", "reference"}
	yearFields     = []string{"year manufactured", "year of manufacture", "year", "production year", "decade"}
)

// CaseMaterial extracts the case material, longest catalogue entry first.
func CaseMaterial(title string, specs Specs) string {
	if v := specs.Get(caseFields...); v != "" {
		if hit := firstMatch(v, catalog.GetWatches().CaseMaterials); hit != "" {
			return titleCase(hit)
		}
	}
	if hit := firstMatch(title, catalog.GetWatches().CaseMaterials); hit != "" {
		return titleCase(hit)
	}
	return ""
}

// BandMaterial extracts the band material.
func BandMaterial(title string, specs Specs) string {
	if v := specs.Get(bandFields...); v != "" {
		if hit := firstMatch(v, catalog.GetWatches().BandMaterials); hit != "" {
			return titleCase(hit)
		}
	}
	if hit := firstMatch(title, catalog.GetWatches().BandMaterials); hit != "" {
		return titleCase(hit)
	}
	return ""
}

// Movement extracts the movement type.
func Movement(title string, specs Specs) string {
	if v := specs.Get(movementFields...); v != "" {
		if hit := firstMatch(v, catalog.GetWatches().Movements); hit != "" {
			return canonicalMovement(hit)
		}
	}
	if hit := firstMatch(title, catalog.GetWatches().Movements); hit != "" {
		return canonicalMovement(hit)
	}
	return ""
}

// canonicalMovement folds synonym spellings into one value.
func canonicalMovement(hit string) string {
	switch hit {
	case "self-winding", "self winding":
		return "automatic"
	case "manual wind", "manual-wind", "hand wind", "hand-wind", "hand winding":
		return "manual"
	case "eco-drive", "eco drive":
		return "solar"
	default:
		return hit
	}
}

// DialColor extracts the dial color.
func DialColor(title string, specs Specs) string {
	if v := specs.Get(dialFields...); v != "" {
		if hit := firstMatch(v, catalog.GetWatches().DialColors); hit != "" {
			return titleCase(hit)
		}
	}
	if hit := firstMatch(title, catalog.GetWatches().DialColors); hit != "" {
		return titleCase(hit)
	}
	return ""
}

// WatchBrand extracts the brand, longest catalogue entry first so
// "grand seiko" is not read as "seiko".
func WatchBrand(title string, specs Specs) string {
	if v := specs.Get(brandFields...); v != "" {
		if hit := firstMatch(v, catalog.GetWatches().Brands); hit != "" {
			return titleCase(hit)
		}
	}
	if hit := firstMatch(title, catalog.GetWatches().Brands); hit != "" {
		return titleCase(hit)
	}
	return ""
}

// Stop words never taken as a model name.
var modelStopWords = map[string]bool{
	"watch": true, "watches": true, "mens": true, "men's": true,
	"ladies": true, "women's": true, "womens": true, "vintage": true,
	"automatic": true, "quartz": true, "manual": true, "wristwatch": true,
	"with": true, "and": true, "the": true, "for": true, "rare": true,
}

// WatchModel extracts the model: the model spec field when present,
// otherwise the words following the brand in the title (up to three,
// stopping at stop words).
func WatchModel(title string, specs Specs, brand string) string {
	if v := specs.Get(modelFields...); v != "" {
		return strings.TrimSpace(v)
	}
	if brand == "" {
		return ""
	}
	lower := strings.ToLower(title)
	idx := strings.Index(lower, strings.ToLower(brand))
	if idx < 0 {
		return ""
	}
	rest := strings.Fields(title[idx+len(brand):])
	var words []string
	for _, w := range rest {
		clean := strings.Trim(w, ",.()-")
		if clean == "" || modelStopWords[strings.ToLower(clean)] {
			break
		}
		words = append(words, clean)
		if len(words) == 3 {
			break
		}
	}
	return strings.Join(words, " ")
}

var (
	yearRe   = regexp.MustCompile(`\b(18\d{2}|19\d{2}|20\d{2})\b`)
	decadeRe = regexp.MustCompile(`\b(18\d0|19\d0|20\d0)\s*'?s\b`)
)

// WatchYear extracts the year of manufacture from specs or title. Decade
// forms ("1960s") yield the decade start. Zero means unknown.
func WatchYear(title string, specs Specs) int {
	for _, text := range []string{specs.Get(yearFields...), title} {
		if text == "" {
			continue
		}
		if m := decadeRe.FindStringSubmatch(text); m != nil {
			if y := parseYear(m[1]); y != 0 {
				return y
			}
		}
		if m := yearRe.FindStringSubmatch(text); m != nil {
			if y := parseYear(m[1]); y != 0 {
				return y
			}
		}
	}
	return 0
}

func parseYear(s string) int {
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	if y < 1800 || y > time.Now().Year()+1 {
		return 0
	}
	return y
}
