package domain

import "fmt"

type Category string

const (
	CategoryAll         Category = "all"
	CategoryLazy        Category = "lazy"
	CategoryAdventurous Category = "adventurous"
	CategoryFamily      Category = "family"
	CategoryFoodie      Category = "foodie"
	CategoryCreative    Category = "creative"
	CategoryTravel      Category = "travel"
	CategorySocial      Category = "social"
)

// ValidCategories is the canonical set of accepted plan categories, in display order.
var ValidCategories = []Category{
	CategoryAll, CategoryLazy, CategoryAdventurous, CategoryFamily,
	CategoryFoodie, CategoryCreative, CategoryTravel, CategorySocial,
}

// ParseCategory validates s against ValidCategories.
func ParseCategory(s string) (Category, error) {
	for _, c := range ValidCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
)

// Field names one top-level plan field that a PlanUpdate can overwrite.
type Field string

const (
	FieldName     Field = "name"
	FieldColor    Field = "color"
	FieldCategory Field = "category"
	FieldSchedule Field = "schedule"
)
