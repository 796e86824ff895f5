// Package mailaddr validates and normalizes user-submitted email addresses.
//
// The rules are intentionally stricter than RFC 5321/5322. They reject
// addresses that are technically valid but almost always typos, such as
// "user@gmail.com.com" or a numeric top-level domain.
package mailaddr

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxLocalLen  = 64
	maxDomainLen = 255
)

var (
	ErrMissing      = errors.New("mailaddr: missing")
	ErrMalformed    = errors.New("mailaddr: malformed")
	ErrMissingTLD   = errors.New("mailaddr: missing top-level domain")
	ErrDuplicateTLD = errors.New("mailaddr: repeated domain label")
	ErrInvalidTLD   = errors.New("mailaddr: invalid top-level domain")
)

var (
	tldPattern = regexp.MustCompile(`^[a-zA-Z]{2,}$`)

	addrPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+" +
		`@[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?` +
		`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)
)

// Normalize trims surrounding whitespace and lower-cases the address.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Validate checks raw and returns its normalized form.
// The returned error is one of the package's Err values.
func Validate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrMissing
	}
	addr := Normalize(raw)

	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	local, domain := parts[0], parts[1]

	if local == "" || utf8.RuneCountInString(local) > maxLocalLen {
		return "", ErrMalformed
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return "", ErrMalformed
	}

	if domain == "" || utf8.RuneCountInString(domain) > maxDomainLen {
		return "", ErrMalformed
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "", ErrMissingTLD
	}
	if hasRepeatedLabel(labels) {
		return "", ErrDuplicateTLD
	}

	if !tldPattern.MatchString(labels[len(labels)-1]) {
		return "", ErrInvalidTLD
	}

	for _, l := range labels {
		if l == "" || strings.HasPrefix(l, "-") || strings.HasSuffix(l, "-") {
			return "", ErrMalformed
		}
	}

	if !addrPattern.MatchString(addr) {
		return "", ErrMalformed
	}
	return addr, nil
}

// hasRepeatedLabel reports whether two adjacent labels are equal.
// Empty labels are left for the empty-label check.
func hasRepeatedLabel(labels []string) bool {
	for i := 1; i < len(labels); i++ {
		if labels[i] != "" && labels[i] == labels[i-1] {
			return true
		}
	}
	return false
}

// Message returns the user-facing text for a Validate error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissing):
		return "Please enter your email address"
	case errors.Is(err, ErrMissingTLD):
		return "Please enter a valid email address with a domain"
	case errors.Is(err, ErrDuplicateTLD):
		return "Your email domain looks repeated (for example .com.com). Please check it"
	case errors.Is(err, ErrInvalidTLD):
		return "Please enter a valid email domain ending, such as .com or .org"
	default:
		return "Please enter a valid email address"
	}
}

// Kind returns a short label for err, suitable for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissing):
		return "missing"
	case errors.Is(err, ErrMissingTLD):
		return "missing_tld"
	case errors.Is(err, ErrDuplicateTLD):
		return "duplicate_tld"
	case errors.Is(err, ErrInvalidTLD):
		return "invalid_tld"
	default:
		return "malformed"
	}
}
