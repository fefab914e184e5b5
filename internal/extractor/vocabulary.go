package extractor

import (
	"regexp"
	"sort"
	"strings"
)

// vehicleModels is checked before vehicleBrands so "Toyota Camry" yields the model.
var vehicleModels = []string{
	"4Runner", "Camry", "Corolla", "Highlander", "Prius", "RAV4", "Sienna", "Tacoma", "Tundra",
	"Accord", "Civic", "CR-V", "HR-V", "Odyssey", "Pilot", "Ridgeline",
	"Bronco", "Escape", "Explorer", "Expedition", "F-150", "Maverick", "Mustang", "Ranger",
	"Colorado", "Equinox", "Malibu", "Silverado", "Suburban", "Tahoe", "Traverse",
	"Altima", "Frontier", "Pathfinder", "Rogue", "Sentra",
	"Elantra", "Palisade", "Santa Fe", "Sonata", "Tucson",
	"Forte", "Sorento", "Sportage", "Telluride",
	"Cherokee", "Grand Cherokee", "Wrangler", "Gladiator",
	"Model 3", "Model S", "Model X", "Model Y",
	"Outback", "Forester", "Crosstrek",
	"CX-5", "CX-50", "Mazda3",
}

var vehicleBrands = []string{
	"Toyota", "Honda", "Ford", "Chevrolet", "Chevy", "Nissan", "Hyundai", "Kia", "Jeep", "Ram",
	"GMC", "Subaru", "Mazda", "Tesla", "Volkswagen", "BMW", "Mercedes-Benz", "Audi", "Lexus", "Acura",
}

// vocabularyMatcher returns a rule func that finds the earliest whole-word vocabulary
// token and returns its canonical spelling.
func vocabularyMatcher(words []string) func(string) string {
	canonical := make(map[string]string, len(words))
	alts := make([]string, 0, len(words))
	// Longer tokens first so "Grand Cherokee" wins over "Cherokee" at the same position.
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, w := range sorted {
		canonical[strings.ToLower(w)] = w
		alts = append(alts, regexp.QuoteMeta(w))
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)

	return func(text string) string {
		m := re.FindString(text)
		if m == "" {
			return ""
		}
		return canonical[strings.ToLower(m)]
	}
}
