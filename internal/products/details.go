package product

import "github.com/angelmondragon/threadhouse-backend/pkg/enums"

// RequiredDetailFields must be present (and non-empty) after a details update.
var RequiredDetailFields = []string{
	"material",
	"careInstructions",
	"origin",
	"shippingInfo",
	"fabric",
	"pattern",
	"neck",
	"sleeve",
	"styleCode",
	"occasion",
	"knitType",
	"suitableFor",
	"fabricCare",
	"netQuantity",
}

var teeDetails = map[string]string{
	"material":         "Platinum Soft Cotton",
	"careInstructions": "Machine wash cold, tumble dry low",
	"origin":           "Made in India",
	"shippingInfo":     "Express shipping available 3 - 5 business days",
	"fabric":           "Platinum Soft Cotton",
	"pattern":          "Solid with Graphic Print",
	"neck":             "Round Neck",
	"sleeve":           "Half Sleeve",
	"styleCode":        "OS-1",
	"occasion":         "Casual, Sports",
	"knitType":         "Platinum Soft Cotton",
	"suitableFor":      "Western Wear, Sports",
	"fabricCare":       "Gentle Machine Wash, Do not bleach",
	"netQuantity":      "1",
}

var categoryDetails = map[enums.ProductCategory]map[string]string{
	enums.ProductCategoryHoodies: {
		"material":         "Cotton Fleece Blend",
		"careInstructions": "Regular Machine Wash",
		"origin":           "Made in India",
		"shippingInfo":     "Ships within 3-5 business days.",
		"fabric":           "Cotton Fleece Blend",
		"pattern":          "Graphic Print",
		"neck":             "Hooded Neck",
		"sleeve":           "Full Sleeve",
		"styleCode":        "Red",
		"occasion":         "Casual",
		"pockets":          "Kangaroo pocket",
		"hooded":           "Yes",
		"reversible":       "No",
		"knitType":         "Fleece cotton blend",
		"suitableFor":      "Western Wear",
		"secondaryColor":   "Red",
		"fabricCare":       "Regular Machine Wash",
		"netQuantity":      "1",
	},
	enums.ProductCategoryTshirt:       teeDetails,
	enums.ProductCategoryCoupleTshirt: teeDetails,
	enums.ProductCategoryOversizeTshirt: {
		"material":         "Premium Soft Cotton",
		"careInstructions": "Machine wash cold, tumble dry low",
		"origin":           "Made in India",
		"shippingInfo":     "Express shipping available 3 - 5 business days",
		"fabric":           "Premium Soft Cotton",
		"pattern":          "Solid with Graphic Print",
		"neck":             "Round Neck",
		"sleeve":           "Half Sleeve",
		"styleCode":        "OS-1",
		"occasion":         "Casual, Sports",
		"knitType":         "Premium Soft Cotton",
		"suitableFor":      "Western Wear, Sports, Casual Outings",
		"fabricCare":       "Gentle Machine Wash, Do not bleach",
		"netQuantity":      "1",
	},
}

// DefaultDetails returns a copy of the preset details for category, or an
// empty map when the category has none.
func DefaultDetails(category enums.ProductCategory) map[string]string {
	preset := categoryDetails[category]
	out := make(map[string]string, len(preset))
	for k, v := range preset {
		out[k] = v
	}
	return out
}

// MissingDetailFields lists the required keys absent or blank in details.
func MissingDetailFields(details map[string]string) []string {
	var missing []string
	for _, field := range RequiredDetailFields {
		if details[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
