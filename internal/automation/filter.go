package automation

import (
	"fmt"
	"strings"
)

// Category selects which dispensary types the map lists.
type Category string

const (
	CategoryAll          Category = "all"
	CategoryMedicinal    Category = "medicinal"
	CategoryRecreational Category = "recreational"
)

// Toggle labels as they appear on the map's category controls.
var (
	MedicinalLabels = []string{
		"medicinal cannabis", "medical cannabis", "medicinal", "medical",
		"alternative treatment", "atc", "atcs",
	}
	AdultUseLabels = []string{
		"adult-use cannabis", "adult use cannabis", "adult-use", "adult use", "recreational",
	}
)

// Filter is a set of toggle labels to switch off and on.
type Filter struct {
	Off []string
	On  []string
}

// ParseCategory maps a flag value to a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryAll, CategoryMedicinal, CategoryRecreational:
		return c, nil
	case "":
		return CategoryAll, nil
	default:
		return "", fmt.Errorf("unknown category %q (want all, medicinal or recreational)", s)
	}
}

// Filter returns the toggles that list only this category.
func (c Category) Filter() Filter {
	switch c {
	case CategoryMedicinal:
		return Filter{Off: clone(AdultUseLabels), On: clone(MedicinalLabels)}
	case CategoryRecreational:
		return Filter{Off: clone(MedicinalLabels), On: clone(AdultUseLabels)}
	default:
		on := clone(MedicinalLabels)
		return Filter{On: append(on, AdultUseLabels...)}
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
