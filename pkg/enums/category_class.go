package enums

import "fmt"

// CategoryClass is the coarse menu classification used by the routing
// heuristic when neither the item nor its category carries explicit tags.
type CategoryClass string

const (
	CategoryClassFood  CategoryClass = "food"
	CategoryClassDrink CategoryClass = "drink"
	CategoryClassOther CategoryClass = "other"
)

var validCategoryClasses = []CategoryClass{
	CategoryClassFood,
	CategoryClassDrink,
	CategoryClassOther,
}

// IsValid reports whether the value matches the canonical category_class enum.
func (c CategoryClass) IsValid() bool {
	for _, candidate := range validCategoryClasses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategoryClass converts raw input into CategoryClass.
func ParseCategoryClass(value string) (CategoryClass, error) {
	for _, candidate := range validCategoryClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid category class %q", value)
}
