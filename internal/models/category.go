package models

import "fmt"

// Category is the audience a collection is aimed at.
type Category string

// Audience categories. Unknown is kept distinct from Unisex even though both
// recommend to any target.
const (
	CategoryMen     Category = "men"
	CategoryWomen   Category = "women"
	CategoryUnisex  Category = "unisex"
	CategoryUnknown Category = "unknown"
)

// Categories lists every valid category.
var Categories = []Category{CategoryMen, CategoryWomen, CategoryUnisex, CategoryUnknown}

// ParseCategory returns the category for s, or an error when s is not one of
// the closed set.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryMen, CategoryWomen, CategoryUnisex, CategoryUnknown:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// Classified reports whether the category carries audience information.
func (c Category) Classified() bool {
	return c != CategoryUnknown && c != ""
}
