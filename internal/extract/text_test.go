package extract

import (
	"testing"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

func TestCleanDescription(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"tags stripped", "<p>Solid gold ring</p>", "Solid gold ring"},
		{"nbsp entity", "weight:&nbsp;10.5&nbsp;grams", "weight: 10.5 grams"},
		{"amp entity", "Gold &amp; Silver lot", "Gold & Silver lot"},
		{"numeric entity", "weight &#8212; 5g", "weight — 5g"},
		{"hex entity", "10&#x2013;12 grams", "10–12 grams"},
		{"whitespace collapsed", "a  \n\t b", "a b"},
		{"multiline tags", "<div\nclass='x'>10g</div>", "10g"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanDescription(tc.in); got != tc.want {
				t.Errorf("CleanDescription(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSpecs(t *testing.T) {
	s := NewSpecs([]model.Aspect{
		{Name: "Metal Purity", Value: "14k"},
		{Name: "Total Weight", Value: "10g"},
		{Name: "Metal Purity", Value: "ignored duplicate"},
		{Name: "  ", Value: "dropped"},
		{Name: "Empty", Value: "  "},
	})
	if got := s.Get("metal purity"); got != "14k" {
		t.Errorf("Get(metal purity) = %q, want 14k (first writer wins)", got)
	}
	if got := s.Get("missing", "Total Weight"); got != "10g" {
		t.Errorf("Get fallback = %q, want 10g", got)
	}
	if got := s.Get("empty"); got != "" {
		t.Errorf("blank values should be dropped, got %q", got)
	}
	if s.Empty() {
		t.Error("specs with entries should not be Empty")
	}
	if !NewSpecs(nil).Empty() {
		t.Error("nil aspects should be Empty")
	}
}

func TestContainsToken(t *testing.T) {
	cases := []struct {
		text, needle string
		want         bool
	}{
		{"GIA certified diamond", "gia", true},
		{"Georgia peach brooch", "gia", false},
		{"14k gold", "14k", true},
		{"914kt", "14k", false},
		{"cz stones", "cz", true},
		{"czech crystal", "cz", false},
		{"ends with gia", "gia", true},
		{"gia starts it", "gia", true},
	}
	for _, tc := range cases {
		if got := containsToken(tc.text, tc.needle); got != tc.want {
			t.Errorf("containsToken(%q, %q) = %v, want %v", tc.text, tc.needle, got, tc.want)
		}
	}
}
