// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex          = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	redemptionCodeRegex = regexp.MustCompile(`^[A-Z]\d{2}-\d{3}$`)
)

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	// Clean the phone number
	cleaned := strings.ReplaceAll(phone, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "(", "")
	cleaned = strings.ReplaceAll(cleaned, ")", "")

	// Allows + prefix followed by 7-15 digits
	return phoneRegex.MatchString(cleaned)
}

// ValidRedemptionCode checks the A12-345 format: one uppercase letter, two
// digits, a dash and three digits.
func ValidRedemptionCode(code string) bool {
	return redemptionCodeRegex.MatchString(code)
}
