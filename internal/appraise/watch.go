package appraise

import (
	"fmt"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// FilterWatch applies the post-extraction watch constraints. An unknown
// year (zero) is tolerated when a range is set; an unknown case material
// is tolerated when materials are selected.
func FilterWatch(f *model.WatchFilters, year int, caseMaterial string) (reason string, ok bool) {
	if year != 0 {
		if f.YearMin > 0 && year < f.YearMin {
			return fmt.Sprintf("Year %d before minimum %d", year, f.YearMin), false
		}
		if f.YearMax > 0 && year > f.YearMax {
			return fmt.Sprintf("Year %d after maximum %d", year, f.YearMax), false
		}
	}
	if len(f.CaseMaterials) > 0 && caseMaterial != "" && !containsAnyEqual(caseMaterial, f.CaseMaterials) {
		return fmt.Sprintf("Case material %q not in task set", caseMaterial), false
	}
	return "", true
}
