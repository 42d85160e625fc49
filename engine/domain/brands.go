package domain

import "strings"

// Brands is the static brand reference table, keyed by lowercase brand name.
// Display and routing data only; the decode algorithm never consults it.
var Brands = map[string]BrandInfo{
	"honda": {
		Name:          "Honda",
		FullName:      "Honda Motor Co., Ltd.",
		Description:   "Japanese manufacturer known for reliable passenger cars and motorcycles.",
		WMIPrefixes:   []string{"1HG", "2HG", "JHM", "SHH", "19X"},
		PopularModels: []string{"Civic", "Accord", "CR-V", "Pilot", "Odyssey"},
		Country:       "Japan",
	},
	"toyota": {
		Name:          "Toyota",
		FullName:      "Toyota Motor Corporation",
		Description:   "World's largest automaker by production volume.",
		WMIPrefixes:   []string{"JTD", "JTE", "4T1", "5TD", "2T1"},
		PopularModels: []string{"Camry", "Corolla", "RAV4", "Highlander", "Tacoma"},
		Country:       "Japan",
	},
	"ford": {
		Name:          "Ford",
		FullName:      "Ford Motor Company",
		Description:   "American manufacturer, maker of the best-selling F-Series trucks.",
		WMIPrefixes:   []string{"1FA", "1FT", "1FM", "3FA", "1FD"},
		PopularModels: []string{"F-150", "Escape", "Explorer", "Mustang", "Bronco"},
		Country:       "United States",
	},
	"chevrolet": {
		Name:          "Chevrolet",
		FullName:      "Chevrolet Division of General Motors",
		Description:   "General Motors' mainstream brand for cars, trucks, and SUVs.",
		WMIPrefixes:   []string{"1G1", "1GC", "2G1", "3GC", "1GN"},
		PopularModels: []string{"Silverado", "Equinox", "Malibu", "Tahoe", "Camaro"},
		Country:       "United States",
	},
	"bmw": {
		Name:          "BMW",
		FullName:      "Bayerische Motoren Werke AG",
		Description:   "German manufacturer of luxury and performance vehicles.",
		WMIPrefixes:   []string{"WBA", "WBS", "WBY", "5UX", "4US"},
		PopularModels: []string{"3 Series", "5 Series", "X3", "X5", "M3"},
		Country:       "Germany",
	},
	"mercedes-benz": {
		Name:          "Mercedes-Benz",
		FullName:      "Mercedes-Benz Group AG",
		Description:   "German luxury manufacturer, one of the oldest car brands.",
		WMIPrefixes:   []string{"WDB", "WDD", "WDC", "4JG", "W1K"},
		PopularModels: []string{"C-Class", "E-Class", "GLC", "GLE", "S-Class"},
		Country:       "Germany",
	},
	"volkswagen": {
		Name:          "Volkswagen",
		FullName:      "Volkswagen AG",
		Description:   "German manufacturer of mass-market passenger vehicles.",
		WMIPrefixes:   []string{"WVW", "3VW", "1VW", "WV1", "WV2"},
		PopularModels: []string{"Jetta", "Golf", "Tiguan", "Atlas", "Passat"},
		Country:       "Germany",
	},
	"nissan": {
		Name:          "Nissan",
		FullName:      "Nissan Motor Co., Ltd.",
		Description:   "Japanese manufacturer of cars, trucks, and early mass-market EVs.",
		WMIPrefixes:   []string{"1N4", "JN1", "JN8", "5N1", "3N1"},
		PopularModels: []string{"Altima", "Rogue", "Sentra", "Pathfinder", "Leaf"},
		Country:       "Japan",
	},
	"tesla": {
		Name:          "Tesla",
		FullName:      "Tesla, Inc.",
		Description:   "American electric vehicle manufacturer.",
		WMIPrefixes:   []string{"5YJ", "7SA", "7G2", "LRW"},
		PopularModels: []string{"Model 3", "Model Y", "Model S", "Model X"},
		Country:       "United States",
	},
	"hyundai": {
		Name:          "Hyundai",
		FullName:      "Hyundai Motor Company",
		Description:   "South Korean manufacturer of cars and SUVs.",
		WMIPrefixes:   []string{"KMH", "5NP", "KM8", "5NM"},
		PopularModels: []string{"Elantra", "Sonata", "Tucson", "Santa Fe", "Palisade"},
		Country:       "South Korea",
	},
}

// BrandByName looks up brand reference data by name, case-insensitively.
func BrandByName(name string) (BrandInfo, bool) {
	b, ok := Brands[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}

// BrandByWMI looks up brand reference data by a VIN's WMI prefix.
func BrandByWMI(wmi string) (BrandInfo, bool) {
	wmi = strings.ToUpper(strings.TrimSpace(wmi))
	for _, b := range Brands {
		for _, p := range b.WMIPrefixes {
			if p == wmi {
				return b, true
			}
		}
	}
	return BrandInfo{}, false
}
