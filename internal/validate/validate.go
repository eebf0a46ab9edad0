// Package validate implements whitelist input validation and output encoding.
// Inputs are stored as entered (after trimming and length limits); HTML
// encoding happens on the way out, so stored data stays raw and every rendered
// field is escaped regardless of how it was validated.
package validate

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Field length limits match the database schema.
const (
	MaxEmailLen   = 100
	MaxNameLen    = 50
	MaxPhoneLen   = 20
	MaxAddressLen = 255
)

// Packages the service sells; the selector is an exact-match whitelist.
var allowedPackages = []string{"100 Mb", "200 Mb", "300 Mb"}

// DefaultPackage is used when no selection was made.
const DefaultPackage = "100 Mb"

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// Letters (including Latin-1 and Cyrillic ranges), digits, and punctuation
	// that appears in real names.
	nameRegex = regexp.MustCompile(`^[a-zA-ZÀ-ÿĀ-žА-я0-9\s\-'.,&()]+$`)
	letterRe  = regexp.MustCompile(`[a-zA-ZÀ-ÿĀ-žА-я]`)
	// Phone formatting characters only.
	phoneRegex      = regexp.MustCompile(`^[+\-().\s\d]+$`)
	phoneDigitsOnly = regexp.MustCompile(`^\+?[0-9]+$`)
	addressRegex    = regexp.MustCompile(`^[a-zA-ZÀ-ÿĀ-žА-я0-9\s\-'.,&#/()]+$`)
)

// SanitizeString trims whitespace and truncates to maxLen. Character content
// is not altered.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(input)
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// EncodeForOutput escapes characters with special meaning in HTML so stored
// free text cannot be interpreted as markup when displayed.
func EncodeForOutput(input string) string {
	return html.EscapeString(input)
}

// Email validates and normalizes an email address. The whitelist regex only
// admits valid address shapes; the result is lowercased.
func Email(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", fmt.Errorf("email is required")
	}
	if len(trimmed) > MaxEmailLen {
		return "", fmt.Errorf("email must be less than %d characters", MaxEmailLen)
	}
	if !emailRegex.MatchString(trimmed) {
		return "", fmt.Errorf("invalid email format")
	}
	return strings.ToLower(trimmed), nil
}

// Name validates a person or client name against a whitelist of safe
// characters and requires it to be made primarily of letters.
func Name(name, field string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be 1-%d characters", field, maxLen)
	}
	if !nameRegex.MatchString(trimmed) {
		return "", fmt.Errorf("%s contains invalid characters", field)
	}
	letters := len(letterRe.FindAllString(trimmed, -1))
	if len(trimmed) > 2 && letters*2 < len(trimmed) {
		return "", fmt.Errorf("%s must contain primarily letters", field)
	}
	return SanitizeString(trimmed, maxLen), nil
}

// Phone validates a phone number: formatting characters are allowed but the
// digits alone must form a 7-15 digit number with an optional leading +.
func Phone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", fmt.Errorf("phone is required")
	}
	if len(trimmed) > MaxPhoneLen {
		return "", fmt.Errorf("phone number must be less than %d characters", MaxPhoneLen)
	}
	if !phoneRegex.MatchString(trimmed) {
		return "", fmt.Errorf("phone number contains invalid characters")
	}
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, trimmed)
	if !phoneDigitsOnly.MatchString(digits) {
		return "", fmt.Errorf("phone must contain only numbers and optional + symbol")
	}
	n := len(strings.TrimPrefix(digits, "+"))
	if n < 7 || n > 15 {
		return "", fmt.Errorf("phone number must be 7-15 digits")
	}
	return trimmed, nil
}

// Address validates a postal address against typical address punctuation.
func Address(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", fmt.Errorf("address is required")
	}
	if len(trimmed) > MaxAddressLen {
		return "", fmt.Errorf("address must be less than %d characters", MaxAddressLen)
	}
	if !addressRegex.MatchString(trimmed) {
		return "", fmt.Errorf("address contains invalid characters")
	}
	return SanitizeString(trimmed, MaxAddressLen), nil
}

// Package validates a service package selection by exact match against the
// closed set of offered packages. An empty selection defaults to the smallest
// package.
func Package(pkg string) (string, error) {
	trimmed := strings.TrimSpace(pkg)
	if trimmed == "" {
		return DefaultPackage, nil
	}
	for _, allowed := range allowedPackages {
		if trimmed == allowed {
			return trimmed, nil
		}
	}
	return "", fmt.Errorf("invalid package selection. Must be 100 Mb, 200 Mb, or 300 Mb")
}
