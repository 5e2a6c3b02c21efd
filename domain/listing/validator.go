package listing

import (
	"fmt"
	"unicode/utf8"
)

// publication requirements
const (
	MinTitleLen       = 5
	MinDescriptionLen = 20
)

// ValidateForPublication reports every publication rule the draft violates,
// not just the first. An empty result means the listing is ready for review.
func ValidateForPublication(l *Listing) []string {
	violations := []string{}

	if utf8.RuneCountInString(l.Title) < MinTitleLen {
		violations = append(violations, fmt.Sprintf("title must be at least %d characters", MinTitleLen))
	}
	if utf8.RuneCountInString(l.Description) < MinDescriptionLen {
		violations = append(violations, fmt.Sprintf("description must be at least %d characters", MinDescriptionLen))
	}
	if len(l.Images) == 0 {
		violations = append(violations, "at least one image is required")
	}
	if len(l.AvailableLicenses) == 0 {
		violations = append(violations, "at least one license type is required")
	}
	if l.Pricing.BasePrice <= 0 {
		violations = append(violations, "base price must be greater than 0")
	}

	return violations
}
