package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// homepageEntry is the property list under a bookmark name in bookmarks.yaml.
type homepageEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// The Homepage layout is: - Category: [ - Name: [ {icon, abbr, href} ] ]
type homepageCategory map[string][]map[string][]homepageEntry

type homepageConfig []homepageCategory

var templateVariable = regexp.MustCompile(`\{\{[^}]+\}\}`)

// ParseHomepage parses a Homepage bookmarks.yaml file. The bookmark name is used
// as the title; abbr is the fallback when the name is blank.
func ParseHomepage(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	// {{HOMEPAGE_VAR_...}} placeholders are not valid YAML values.
	data = templateVariable.ReplaceAll(data, []byte(`""`))

	var config homepageConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
	}

	entries := make([]Entry, 0)
	for _, category := range config {
		for _, bookmarkList := range category {
			for _, bookmarkMap := range bookmarkList {
				for name, props := range bookmarkMap {
					if len(props) == 0 || strings.TrimSpace(props[0].Href) == "" {
						continue
					}
					entry := props[0]

					title := strings.TrimSpace(name)
					if title == "" {
						title = strings.TrimSpace(entry.Abbr)
					}
					href := strings.TrimSpace(entry.Href)
					if title == "" {
						title = href
					}
					entries = append(entries, Entry{Title: title, URL: href})
				}
			}
		}
	}
	return entries, nil
}
