package appraise

import (
	"strings"
	"testing"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/extract"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

func specsOf(pairs ...string) extract.Specs {
	var aspects []model.Aspect
	for i := 0; i+1 < len(pairs); i += 2 {
		aspects = append(aspects, model.Aspect{Name: pairs[i], Value: pairs[i+1]})
	}
	return extract.NewSpecs(aspects)
}

func TestFilterJewelryStoneRejection(t *testing.T) {
	f := &model.JewelryFilters{Metals: []string{"Gold"}, WeightMinG: 5}

	reason, ok := FilterJewelry(f, "14K Yellow Gold Ring 5g",
		specsOf("Metal Purity", "14k", "Main Stone", "Diamond", "Total Weight", "5g"))
	if ok {
		t.Fatal("stone in specs must reject")
	}
	if !strings.HasPrefix(reason, "Has stone in specs") {
		t.Fatalf("reason = %q, want Has stone in specs prefix", reason)
	}

	// Explicit "no stone" values are benign and also suppress the
	// title backup check.
	_, ok = FilterJewelry(f, "14K Gold Diamond Cut Chain",
		specsOf("Metal Purity", "14k", "Main Stone", "None", "Total Weight", "10g"))
	if !ok {
		t.Fatal("explicit no-stone spec should pass")
	}

	// All stone fields empty: title keywords are the backup.
	reason, ok = FilterJewelry(f, "14K Gold Ruby Ring 6g",
		specsOf("Metal Purity", "14k", "Total Weight", "6g"))
	if ok {
		t.Fatal("stone keyword in title must reject")
	}
	if !strings.HasPrefix(reason, "Has stone in title") {
		t.Fatalf("reason = %q", reason)
	}
}

func TestFilterJewelryPlatedRejection(t *testing.T) {
	f := &model.JewelryFilters{Metals: []string{"Gold"}}
	cases := []struct {
		title string
		specs extract.Specs
		pass  bool
	}{
		{"14K Gold Plated Chain", specsOf(), false},
		{"Gold Filled Bracelet", specsOf(), false},
		{"Chain", specsOf("Base Metal", "Gold Plated Brass"), false},
		{"14K Two-Tone Gold Bracelet 12g", specsOf(), true},
		{"14K Yellow Gold Chain 10g", specsOf("Metal Purity", "14k"), true},
	}
	for _, tc := range cases {
		_, ok := FilterJewelry(f, tc.title, tc.specs)
		if ok != tc.pass {
			t.Errorf("FilterJewelry(%q) pass = %v, want %v", tc.title, ok, tc.pass)
		}
	}
}

func TestFilterJewelryPurity(t *testing.T) {
	f := &model.JewelryFilters{Purities: []string{"14k", "18k"}}
	if _, ok := FilterJewelry(f, "14K Gold Chain 10g", specsOf()); !ok {
		t.Error("14k should satisfy selected purities")
	}
	reason, ok := FilterJewelry(f, "10K Gold Chain 10g", specsOf())
	if ok {
		t.Errorf("10k against {14k,18k} should reject")
	}
	if !strings.Contains(reason, "not in selected purities") {
		t.Errorf("reason = %q", reason)
	}
}

func TestFilterJewelryWeightRange(t *testing.T) {
	f := &model.JewelryFilters{WeightMinG: 5, WeightMaxG: 50}
	if _, ok := FilterJewelry(f, "Gold Chain", specsOf("Total Weight", "10g")); !ok {
		t.Error("10g in [5,50] should pass")
	}
	if _, ok := FilterJewelry(f, "Gold Chain", specsOf("Total Weight", "3g")); ok {
		t.Error("3g below minimum should reject")
	}
	if _, ok := FilterJewelry(f, "Gold Chain", specsOf("Total Weight", "2 oz")); ok {
		t.Error("2oz = 56.7g above maximum should reject")
	}
	// No parsed weight: range not enforced.
	if _, ok := FilterJewelry(f, "Gold Chain", specsOf()); !ok {
		t.Error("unknown weight should pass")
	}
}

func TestIdentifyMetal(t *testing.T) {
	metal, purity, ok := IdentifyMetal("14K Yellow Gold Chain", specsOf())
	if !ok || metal != "gold" || purity != 14 {
		t.Fatalf("got %s/%d/%v, want gold/14", metal, purity, ok)
	}
	metal, purity, ok = IdentifyMetal("Sterling Silver Bracelet", specsOf())
	if !ok || metal != "silver" || purity != 925 {
		t.Fatalf("got %s/%d/%v, want silver/925", metal, purity, ok)
	}
	if _, _, ok = IdentifyMetal("Gold Chain", specsOf()); ok {
		t.Fatal("gold without karat must not identify")
	}
	if _, _, ok = IdentifyMetal("Titanium Band", specsOf()); ok {
		t.Fatal("non-precious metal must not identify")
	}
}

func TestScrapGate(t *testing.T) {
	// 14k at 40/g, 10 g: melt 400, cost 160, break-even 388 > 80.
	melt := Melt(40, 10)
	if melt != 400 {
		t.Fatalf("melt = %v, want 400", melt)
	}
	profit, ok := ScrapGate(melt, 150, 10)
	if !ok || profit != 240 {
		t.Fatalf("gate = %v/%v, want 240/pass", profit, ok)
	}

	// Gate fails when cost dwarfs melt.
	if _, ok := ScrapGate(100, 200, 10); ok {
		t.Fatal("97 <= 105 must reject")
	}
}

func TestScrapGateMonotoneInPrice(t *testing.T) {
	melt := Melt(40, 10)
	rejected := false
	for price := 0.0; price <= 1000; price += 25 {
		_, ok := ScrapGate(melt, price, 10)
		if !ok {
			rejected = true
		} else if rejected {
			t.Fatalf("gate passed at price %v after rejecting a lower price", price)
		}
	}
	if !rejected {
		t.Fatal("expected the gate to reject at high prices")
	}
}

func TestFilterWatch(t *testing.T) {
	f := &model.WatchFilters{YearMin: 1950, YearMax: 1980, CaseMaterials: []string{"Stainless Steel"}}
	if _, ok := FilterWatch(f, 1968, "Stainless Steel"); !ok {
		t.Error("in-range watch should pass")
	}
	if _, ok := FilterWatch(f, 1995, "Stainless Steel"); ok {
		t.Error("1995 after maximum should reject")
	}
	if _, ok := FilterWatch(f, 0, ""); !ok {
		t.Error("unknown year and material are tolerated")
	}
	if _, ok := FilterWatch(f, 1968, "Gold Plated"); ok {
		t.Error("unselected case material should reject")
	}
}
