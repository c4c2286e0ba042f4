package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Grams-per-unit conversion table. Precious metals quote troy ounces;
// pennyweight is a twentieth of a troy ounce.
var gramsPerUnit = map[string]float64{
	"g":            1,
	"gr":           1,
	"gram":         1,
	"grams":        1,
	"oz":           31.1035,
	"ozt":          31.1035,
	"ounce":        31.1035,
	"ounces":       31.1035,
	"troy oz":      31.1035,
	"troy ounce":   31.1035,
	"troy ounces":  31.1035,
	"dwt":          1.55517,
	"pennyweight":  1.55517,
	"pennyweights": 1.55517,
	"ct":           0.2,
	"cts":          0.2,
	"carat":        0.2,
	"carats":       0.2,
	"kg":           1000,
	"kilogram":     1000,
	"kilograms":    1000,
	"lb":           453.592,
	"lbs":          453.592,
	"pound":        453.592,
	"pounds":       453.592,
}

// Spec field-name variants for weight, tried in order.
var weightFields = []string{
	"total weight", "weight", "item weight", "metal weight", "gram weight",
	"total gram weight", "total metal weight", "weight (grams)", "weight (g)",
	"approx weight", "approximate weight", "gold weight", "silver weight",
	"total carat weight",
}

// Unit alternatives ordered longest-first so "troy ounces" beats "oz".
var weightRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(troy ounces|troy ounce|troy oz|pennyweights|pennyweight|kilograms|kilogram|ounces|ounce|pounds|pound|carats|carat|grams|gram|cts|ozt|dwt|lbs|kg|lb|oz|gr|ct|g)\b`)

// WeightGrams extracts a weight in grams, searching specs, then the title,
// then the cleaned description. Values are rounded to 2 decimal places.
func WeightGrams(specs Specs, title, description string) (float64, bool) {
	if v := specs.Get(weightFields...); v != "" {
		if g, ok := weightFromText(v); ok {
			return g, true
		}
	}
	if g, ok := weightFromText(title); ok {
		return g, true
	}
	if description != "" {
		if g, ok := weightFromText(CleanDescription(description)); ok {
			return g, true
		}
	}
	return 0, false
}

// weightFromText parses the first recognizable weight expression.
func weightFromText(text string) (float64, bool) {
	m := weightRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", ".")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	factor, ok := gramsPerUnit[strings.ToLower(m[2])]
	if !ok {
		return 0, false
	}
	return round2(value * factor), true
}

// ConvertToGrams converts an explicit (value, unit) pair, rounded to 2 dp.
func ConvertToGrams(value float64, unit string) (float64, bool) {
	factor, ok := gramsPerUnit[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, false
	}
	return round2(value * factor), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
