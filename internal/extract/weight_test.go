package extract

import (
	"fmt"
	"math"
	"testing"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

func TestUnitConversions(t *testing.T) {
	// Conversion law: value x factor, rounded to 2 dp, for every unit.
	units := map[string]float64{
		"g": 1, "gr": 1, "oz": 31.1035, "dwt": 1.55517, "ct": 0.2,
		"kg": 1000, "lb": 453.592,
	}
	for unit, factor := range units {
		for _, value := range []float64{0.5, 1, 2.37, 10} {
			want := math.Round(value*factor*100) / 100
			got, ok := ConvertToGrams(value, unit)
			if !ok {
				t.Fatalf("ConvertToGrams(%v, %q) not ok", value, unit)
			}
			if got != want {
				t.Errorf("ConvertToGrams(%v, %q) = %v, want %v", value, unit, got, want)
			}

			// Same law through the text parser.
			text := fmt.Sprintf("weighs %v %s total", value, unit)
			got, ok = weightFromText(text)
			if !ok || got != want {
				t.Errorf("weightFromText(%q) = %v/%v, want %v", text, got, ok, want)
			}
		}
	}

	if _, ok := ConvertToGrams(1, "stone"); ok {
		t.Error("unknown unit should not convert")
	}
}

func TestWeightFromText(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"14K Yellow Gold Chain 10g", 10, true},
		{"10.5 grams sterling lot", 10.5, true},
		{"weight: 2 troy ounces", 62.21, true},
		{"5 dwt scrap ring", 7.78, true},
		{"european comma 3,5 g", 3.5, true},
		{"no weight here", 0, false},
		{"2.5 pounds mixed lot", 1133.98, true},
	}
	for _, tc := range cases {
		got, ok := weightFromText(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("weightFromText(%q) = %v/%v, want %v/%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWeightGramsPriority(t *testing.T) {
	specs := NewSpecs([]model.Aspect{{Name: "Total Weight", Value: "10g"}})

	// Specs win over title and description.
	g, ok := WeightGrams(specs, "chain 99 grams", "<p>weighs 50 grams</p>")
	if !ok || g != 10 {
		t.Errorf("specs priority: got %v/%v, want 10", g, ok)
	}

	// Title wins over description when specs are silent.
	g, ok = WeightGrams(NewSpecs(nil), "chain 99 grams", "<p>weighs 50 grams</p>")
	if !ok || g != 99 {
		t.Errorf("title priority: got %v/%v, want 99", g, ok)
	}

	// Description is parsed after HTML cleanup.
	g, ok = WeightGrams(NewSpecs(nil), "gold chain", "<b>weighs</b>&nbsp;50&nbsp;grams")
	if !ok || g != 50 {
		t.Errorf("description fallback: got %v/%v, want 50", g, ok)
	}

	if _, ok := WeightGrams(NewSpecs(nil), "gold chain", ""); ok {
		t.Error("no weight anywhere should not be ok")
	}
}
