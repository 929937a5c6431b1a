package report

import (
	"fmt"
	"net/url"
	"strings"
)

const wwwPrefix = "www."

// Stem derives the output filename stem for a page: its hostname with one
// leading "www." removed.
func Stem(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	return strings.TrimPrefix(host, wwwPrefix), nil
}
