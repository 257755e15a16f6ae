// Package target holds the URL and host patterns scans are run against.
// Validation is never applied implicitly; callers opt in.
package target

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind says whether a tool expects a URL or a bare host.
type Kind int

const (
	URL Kind = iota
	Host
)

func (k Kind) String() string {
	switch k {
	case URL:
		return "url"
	case Host:
		return "host"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	// URLPattern matches a URL-shaped run of text.
	URLPattern = `https?://[^\s/$.?#].[^\s]*`
	// HostPattern matches a dotted domain name with an alphabetic TLD.
	HostPattern = `^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`
)

var (
	urlRe      = regexp.MustCompile(URLPattern)
	urlExactRe = regexp.MustCompile(`^` + URLPattern + `$`)
	hostRe     = regexp.MustCompile(HostPattern)

	ErrInvalidURL  = errors.New("invalid url")
	ErrInvalidHost = errors.New("invalid host")
)

func IsURL(s string) bool { return urlExactRe.MatchString(s) }

func IsHost(s string) bool { return hostRe.MatchString(s) }

func ValidateURL(s string) error {
	if !IsURL(s) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, s)
	}
	return nil
}

func ValidateHost(s string) error {
	if !IsHost(s) {
		return fmt.Errorf("%w: %q", ErrInvalidHost, s)
	}
	return nil
}

// Validate checks s against the pattern for k.
func Validate(k Kind, s string) error {
	switch k {
	case Host:
		return ValidateHost(s)
	default:
		return ValidateURL(s)
	}
}

// ExtractURLs returns every URL-shaped substring of text in order of
// appearance. Duplicates are kept.
func ExtractURLs(text string) []string {
	return urlRe.FindAllString(text, -1)
}
