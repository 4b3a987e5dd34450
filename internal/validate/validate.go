// Package validate holds the input format checks shared by the auth and
// lead-capture endpoints.
package validate

import "regexp"

var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobileRegex = regexp.MustCompile(`^[6-9]\d{9}$`)
	nonDigits   = regexp.MustCompile(`\D`)
)

func Email(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeMobile strips every non-digit character.
func NormalizeMobile(mobile string) string {
	return nonDigits.ReplaceAllString(mobile, "")
}

// Mobile reports whether mobile is a 10-digit Indian number starting with
// 6-9 once formatting characters are removed.
func Mobile(mobile string) bool {
	return mobileRegex.MatchString(NormalizeMobile(mobile))
}
