// Package importer reads bookmark files exported by browsers and dashboards.
package importer

import (
	"fmt"
	"io"
	"time"
)

// Format names a supported bookmark file format.
type Format string

const (
	FormatNetscape Format = "netscape"
	FormatHomepage Format = "homepage"
)

// Entry is a single bookmark read from a file. AddedAt is zero when the file carries no date.
type Entry struct {
	Title   string
	URL     string
	AddedAt time.Time
}

// ParseFormat maps a query value to a Format. Empty means netscape.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatNetscape:
		return FormatNetscape, nil
	case FormatHomepage:
		return FormatHomepage, nil
	default:
		return "", fmt.Errorf("unsupported import format %q", s)
	}
}

// Parse reads entries in the given format.
func Parse(format Format, r io.Reader) ([]Entry, error) {
	switch format {
	case FormatNetscape:
		return ParseNetscape(r)
	case FormatHomepage:
		return ParseHomepage(r)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}
