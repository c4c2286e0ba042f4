// Package catalog holds the keyword and synonym tables used by the
// extractors, classifiers, and query builder. The catalogues are data, not
// code: embedded TOML files parsed once at startup, with every entry
// normalized to lowercase.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed data/metals.toml
var metalsTOML []byte

//go:embed data/stones.toml
var stonesTOML []byte

//go:embed data/watches.toml
var watchesTOML []byte

//go:embed data/conditions.toml
var conditionsTOML []byte

// Metals carries the metal keyword tables.
type Metals struct {
	Keywords        map[string][]string `toml:"keywords"`
	PlateGuards     []string            `toml:"plate_guards"`
	ToneAllowances  []string            `toml:"tone_allowances"`
	CostumeKeywords []string            `toml:"costume_keywords"`
	ToolKeywords    []string            `toml:"tool_keywords"`
	KaratMarkers    []string            `toml:"karat_markers"`
	Purity          Purity              `toml:"purity"`
}

// Purity carries the accepted purity sets per metal.
type Purity struct {
	GoldKarats      []int `toml:"gold_karats"`
	Silver          []int `toml:"silver"`
	SilverDefault   int   `toml:"silver_default"`
	Platinum        []int `toml:"platinum"`
	PlatinumDefault int   `toml:"platinum_default"`
	Palladium       []int `toml:"palladium"`
	PalladiumDefault int  `toml:"palladium_default"`
}

// Stones carries the gemstone keyword tables.
type Stones struct {
	Types            []string            `toml:"types"`
	Shapes           []string            `toml:"shapes"`
	Colors           []string            `toml:"colors"`
	ClarityGrades    []string            `toml:"clarity_grades"`
	ClarityLanguage  []string            `toml:"clarity_language"`
	CutGrades        []string            `toml:"cut_grades"`
	Labs             LabTiers            `toml:"labs"`
	Treatments       TreatmentTiers      `toml:"treatments"`
	Simulants        []string            `toml:"simulants"`
	LabTerms         []string            `toml:"lab_terms"`
	PresenceKeywords []string            `toml:"presence_keywords"`
	CategoryChildren map[string][]string `toml:"category_children"`
}

// LabTiers groups certification labs by reputation tier.
type LabTiers struct {
	Premium  []string `toml:"premium"`
	Standard []string `toml:"standard"`
	Budget   []string `toml:"budget"`
}

// TreatmentTiers groups treatment language by severity.
type TreatmentTiers struct {
	None     []string `toml:"none"`
	Standard []string `toml:"standard"`
	Heavy    []string `toml:"heavy"`
}

// Watches carries the watch keyword tables.
type Watches struct {
	Brands        []string `toml:"brands"`
	CaseMaterials []string `toml:"case_materials"`
	BandMaterials []string `toml:"band_materials"`
	Movements     []string `toml:"movements"`
	DialColors    []string `toml:"dial_colors"`
}

// Conditions maps UI condition names to upstream condition IDs.
type Conditions struct {
	IDs      map[string]string `toml:"ids"`
	Synonyms map[string]string `toml:"synonyms"`
}

var (
	metals     Metals
	stones     Stones
	watches    Watches
	conditions Conditions
)

func init() {
	mustLoad("metals", metalsTOML, &metals)
	mustLoad("stones", stonesTOML, &stones)
	mustLoad("watches", watchesTOML, &watches)
	mustLoad("conditions", conditionsTOML, &conditions)

	lowerAll(metals.Keywords)
	lower(metals.PlateGuards)
	lower(metals.ToneAllowances)
	lower(metals.CostumeKeywords)
	lower(metals.ToolKeywords)
	lower(metals.KaratMarkers)

	lower(stones.Types)
	lower(stones.Shapes)
	lower(stones.Colors)
	lower(stones.ClarityGrades)
	lower(stones.ClarityLanguage)
	lower(stones.CutGrades)
	lower(stones.Labs.Premium)
	lower(stones.Labs.Standard)
	lower(stones.Labs.Budget)
	lower(stones.Treatments.None)
	lower(stones.Treatments.Standard)
	lower(stones.Treatments.Heavy)
	lower(stones.Simulants)
	lower(stones.LabTerms)
	lower(stones.PresenceKeywords)

	lower(watches.Brands)
	lower(watches.CaseMaterials)
	lower(watches.BandMaterials)
	lower(watches.Movements)
	lower(watches.DialColors)

	// Longest-match-first orderings.
	byLengthDesc(stones.Types)
	byLengthDesc(stones.Shapes)
	byLengthDesc(stones.Colors)
	byLengthDesc(watches.Brands)
	byLengthDesc(watches.CaseMaterials)
	byLengthDesc(watches.BandMaterials)
	byLengthDesc(watches.Movements)
	byLengthDesc(watches.DialColors)
}

func mustLoad(name string, raw []byte, v any) {
	if err := toml.Unmarshal(raw, v); err != nil {
		panic(fmt.Sprintf("catalog: parse embedded %s table: %v", name, err))
	}
}

func lower(ss []string) {
	for i, s := range ss {
		ss[i] = strings.ToLower(s)
	}
}

func lowerAll(m map[string][]string) {
	for k, v := range m {
		lower(v)
		lk := strings.ToLower(k)
		if lk != k {
			delete(m, k)
			m[lk] = v
		}
	}
}

func byLengthDesc(ss []string) {
	sort.SliceStable(ss, func(i, j int) bool { return len(ss[i]) > len(ss[j]) })
}

// GetMetals returns the metal keyword tables.
func GetMetals() *Metals { return &metals }

// GetStones returns the gemstone keyword tables.
func GetStones() *Stones { return &stones }

// GetWatches returns the watch keyword tables.
func GetWatches() *Watches { return &watches }

// ConditionID resolves a UI condition name or synonym to an upstream
// condition ID. Empty string means unknown.
func ConditionID(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := conditions.Synonyms[key]; ok {
		key = canonical
	}
	return conditions.IDs[key]
}

// MetalNames returns every metal that has a keyword entry, sorted.
func MetalNames() []string {
	names := make([]string, 0, len(metals.Keywords))
	for name := range metals.Keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoryChildren expands a parent category ID into its known leaf
// categories. Unknown IDs return nil.
func CategoryChildren(id string) []string {
	return stones.CategoryChildren[id]
}
