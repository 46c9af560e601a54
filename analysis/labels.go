package analysis

import (
	"strings"
)

// labelMapping pairs a case-insensitive substring with its forensic
// category. Declaration order is the precedence order.
type labelMapping struct {
	substring string
	category  string
}

var forensicCategories = []labelMapping{
	{"speech", "Human Voice"},
	{"narration", "Monologue"},
	{"conversation", "Conversation"},
	{"music", "Musical Content"},
	{"drum", "Percussion"},
	{"guitar", "String Inst."},
	{"vehicle", "Vehicle"},
	{"car", "Automobile"},
	{"truck", "Heavy Vehicle"},
	{"siren", "Emergency Siren"},
	{"dog", "Canine"},
	{"cat", "Feline"},
	{"bird", "Avian"},
	{"gunshot", "Gunshot/Explosion"},
	{"explosion", "Gunshot/Explosion"},
	{"glass", "Breaking Glass"},
	{"scream", "Scream/Distress"},
	{"wind", "Wind Noise"},
	{"rain", "Precipitation"},
	{"water", "Water Sound"},
	{"footsteps", "Footsteps"},
}

// MapLabelToCategory resolves a classifier label to a forensic category.
// Matching is case-insensitive substring search, first mapping wins;
// unmatched labels pass through unchanged.
func MapLabelToCategory(label string) string {
	lower := strings.ToLower(label)
	for _, mapping := range forensicCategories {
		if strings.Contains(lower, mapping.substring) {
			return mapping.category
		}
	}
	return label
}
