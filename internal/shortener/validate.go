package shortener

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	minCustomCodeLength = 3
	maxCustomCodeLength = 20
)

var (
	urlPattern        = regexp.MustCompile(`^(https?)://.*`)
	customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	reservedCodes = map[string]struct{}{
		"api":     {},
		"admin":   {},
		"stats":   {},
		"health":  {},
		"docs":    {},
		"swagger": {},
	}
)

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
func ValidateURL(rawURL string) error {
	if !urlPattern.MatchString(rawURL) {
		return fmt.Errorf("%w: must start with http:// or https://", ErrInvalidURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, err.Error())
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: must use http or https", ErrInvalidURL)
	}

	if u.Hostname() == "" {
		return fmt.Errorf("%w: must have a valid host", ErrInvalidURL)
	}

	return nil
}

// ValidateCustomCode performs the syntactic checks on a user supplied code
// and returns the trimmed code. It does not consult the store.
func ValidateCustomCode(raw string) (Code, error) {
	code := strings.TrimSpace(raw)

	if len(code) < minCustomCodeLength {
		return "", fmt.Errorf("%w: must be at least %d characters long", ErrInvalidCustomCode, minCustomCodeLength)
	}

	if len(code) > maxCustomCodeLength {
		return "", fmt.Errorf("%w: must not exceed %d characters", ErrInvalidCustomCode, maxCustomCodeLength)
	}

	if !customCodePattern.MatchString(code) {
		return "", fmt.Errorf("%w: only letters, numbers, hyphens and underscores are allowed", ErrInvalidCustomCode)
	}

	if _, reserved := reservedCodes[strings.ToLower(code)]; reserved {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidCustomCode, code)
	}

	return Code(code), nil
}
