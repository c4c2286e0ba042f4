package catalog

import (
	"strings"
	"testing"
)

func TestTablesLoaded(t *testing.T) {
	m := GetMetals()
	if len(m.Keywords) == 0 || len(m.PlateGuards) == 0 || len(m.KaratMarkers) == 0 {
		t.Fatal("metal tables empty")
	}
	for _, list := range [][]string{
		m.PlateGuards, m.ToneAllowances, m.CostumeKeywords, m.ToolKeywords, m.KaratMarkers,
	} {
		if len(list) == 0 {
			t.Fatal("top-level metal list empty")
		}
	}
	// Keyword keys must be metal names only; a stray top-level array
	// decoding into the table would show up as an extra key here.
	metals := map[string]bool{
		"gold": true, "silver": true, "platinum": true, "palladium": true,
		"brass": true, "copper": true, "bronze": true, "pewter": true,
		"stainless": true, "titanium": true, "tungsten": true,
	}
	for name := range m.Keywords {
		if !metals[name] {
			t.Errorf("unexpected keyword table entry %q", name)
		}
	}
	if len(m.Keywords) != len(metals) {
		t.Errorf("keyword table has %d metals, want %d", len(m.Keywords), len(metals))
	}
	if len(m.Purity.GoldKarats) != 7 {
		t.Errorf("gold karats = %v, want 7 entries", m.Purity.GoldKarats)
	}
	if m.Purity.SilverDefault != 925 || m.Purity.PlatinumDefault != 950 {
		t.Errorf("purity defaults = %d/%d, want 925/950", m.Purity.SilverDefault, m.Purity.PlatinumDefault)
	}

	s := GetStones()
	if len(s.Types) < 25 {
		t.Errorf("stone types = %d, want at least 25", len(s.Types))
	}
	if len(s.Simulants) == 0 || len(s.LabTerms) == 0 || len(s.PresenceKeywords) == 0 {
		t.Fatal("top-level stone lists empty")
	}
	w := GetWatches()
	if len(w.Brands) == 0 || len(w.Movements) == 0 {
		t.Fatal("watch tables empty")
	}
}

func TestEverythingLowercased(t *testing.T) {
	for _, ss := range [][]string{
		GetMetals().PlateGuards, GetMetals().CostumeKeywords, GetMetals().KaratMarkers,
		GetStones().Types, GetStones().Simulants, GetStones().LabTerms,
		GetWatches().Brands, GetWatches().CaseMaterials,
	} {
		for _, s := range ss {
			if s != strings.ToLower(s) {
				t.Errorf("entry %q not lowercased", s)
			}
		}
	}
}

func TestLongestMatchOrdering(t *testing.T) {
	types := GetStones().Types
	for i := 1; i < len(types); i++ {
		if len(types[i]) > len(types[i-1]) {
			t.Fatalf("stone types not longest-first at %d: %q after %q", i, types[i], types[i-1])
		}
	}

	// "grand seiko" must come before "seiko".
	gs, sk := -1, -1
	for i, b := range GetWatches().Brands {
		switch b {
		case "grand seiko":
			gs = i
		case "seiko":
			sk = i
		}
	}
	if gs == -1 || sk == -1 || gs > sk {
		t.Errorf("brand ordering wrong: grand seiko at %d, seiko at %d", gs, sk)
	}
}

func TestConditionID(t *testing.T) {
	cases := map[string]string{
		"new":                      "1000",
		"Used":                     "3000",
		"PRE-OWNED":                "3000",
		"open box":                 "1500",
		"parts or not working":     "7000",
		"for parts or not working": "7000",
		"mystery":                  "",
	}
	for name, want := range cases {
		if got := ConditionID(name); got != want {
			t.Errorf("ConditionID(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCategoryChildren(t *testing.T) {
	if kids := CategoryChildren("262026"); len(kids) == 0 {
		t.Error("262026 should expand to leaf categories")
	}
	if kids := CategoryChildren("999999"); kids != nil {
		t.Errorf("unknown category expanded to %v", kids)
	}
}
