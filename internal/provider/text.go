package provider

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// htmlToText flattens an HTML fragment to plain text, one block per line.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return cleanWhitespace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return cleanWhitespace(s)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br, p, li, div, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	return cleanWhitespace(doc.Text())
}

func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// linkID derives a posting id from its URL: the last path segment when there
// is one, otherwise a hash of the whole link.
func linkID(link string) string {
	if u, err := url.Parse(link); err == nil {
		if seg := path.Base(strings.TrimRight(u.Path, "/")); seg != "" && seg != "." && seg != "/" {
			return seg
		}
	}
	sum := sha1.Sum([]byte(link))
	return hex.EncodeToString(sum[:])
}
