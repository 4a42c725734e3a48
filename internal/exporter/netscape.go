// Package exporter writes bookmarks in the Netscape bookmark file format.
package exporter

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

// WriteNetscape writes bookmarks in the order given as a flat Netscape bookmark list.
func WriteNetscape(w io.Writer, bookmarks []models.Bookmark) error {
	b := bufio.NewWriter(w)

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	for _, bookmark := range bookmarks {
		fmt.Fprintf(b,
			"    <DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
			html.EscapeString(bookmark.URL),
			bookmark.CreatedAt.Unix(),
			html.EscapeString(bookmark.Title),
		)
	}

	b.WriteString("</DL><p>\n")
	return b.Flush()
}
