package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ParseNetscape parses Netscape bookmark HTML. Folders are flattened; anchors
// without an HREF are skipped and an empty title falls back to the URL.
func ParseNetscape(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			href := strings.TrimSpace(getAttr(n, "href"))
			if href == "" {
				return
			}

			title := getTextContent(n)
			if title == "" {
				title = href
			}

			entry := Entry{Title: title, URL: href}
			if addDate := getAttr(n, "add_date"); addDate != "" {
				if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil && ts > 0 {
					entry.AddedAt = time.Unix(ts, 0).UTC()
				}
			}
			entries = append(entries, entry)
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return entries, nil
}

func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
