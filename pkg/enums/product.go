package enums

import "fmt"

// ProductCategory represents the apparel categories carried by the catalog.
type ProductCategory string

const (
	ProductCategoryHoodies        ProductCategory = "Hoodies"
	ProductCategoryTshirt         ProductCategory = "Tshirt"
	ProductCategoryOversizeTshirt ProductCategory = "Oversize-Tshirt"
	ProductCategoryCoupleTshirt   ProductCategory = "Couple-Tshirt"
	ProductCategoryPoloTshirt     ProductCategory = "Polo-Tshirt"
	ProductCategoryPlainTshirt    ProductCategory = "Plain-Tshirt"
)

var validProductCategories = []ProductCategory{
	ProductCategoryHoodies,
	ProductCategoryTshirt,
	ProductCategoryOversizeTshirt,
	ProductCategoryCoupleTshirt,
	ProductCategoryPoloTshirt,
	ProductCategoryPlainTshirt,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// Gender is the fit a product is cut for.
type Gender string

const (
	GenderUnisex Gender = "Unisex"
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

var validGenders = []Gender{GenderUnisex, GenderMale, GenderFemale}

// String implements fmt.Stringer.
func (g Gender) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Gender.
func (g Gender) IsValid() bool {
	for _, candidate := range validGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGender converts raw input into a Gender.
func ParseGender(value string) (Gender, error) {
	for _, candidate := range validGenders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q", value)
}
