// Package compose renders new postings into Telegram HTML messages that fit the
// per-message length limit.
package compose

import (
	"strings"
	"unicode"

	"jobalert/internal/posting"
	"jobalert/pkg/tgui"
)

const (
	DefaultHeader   = "New Job Alerts!"
	DefaultLinkText = "View Job Posting"
)

// Composer renders postings. The zero value uses Telegram's limit and the
// default header and link text.
type Composer struct {
	// MaxLen is the chunk bound in characters; <= 0 means tgui.MaxMessageLen.
	MaxLen   int
	Header   string
	LinkText string
}

func (c Composer) maxLen() int {
	if c.MaxLen <= 0 {
		return tgui.MaxMessageLen
	}
	return c.MaxLen
}

func (c Composer) header() string {
	if h := strings.TrimSpace(c.Header); h != "" {
		return h
	}
	return DefaultHeader
}

func (c Composer) linkText() string {
	if t := strings.TrimSpace(c.LinkText); t != "" {
		return t
	}
	return DefaultLinkText
}

// Entry renders one posting: a bold title line, a link line and a blank line.
func (c Composer) Entry(rec posting.Record) string {
	return tgui.B(rec.Title).String() + "\n" +
		tgui.Link(c.linkText(), quoteURL(rec.JobURL)).String() + "\n\n"
}

// Entries renders every posting; the first entry carries the header.
func (c Composer) Entries(records []posting.Record) []string {
	if len(records) == 0 {
		return nil
	}
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = c.Entry(rec)
	}
	out[0] = tgui.B(c.header()).String() + "\n\n" + out[0]
	return out
}

// Compose renders records into ordered message chunks.
//
// Chunks only ever break between entries. No chunk exceeds MaxLen unless a
// single entry is longer than MaxLen on its own, in which case that entry is
// sent whole as its own chunk. An empty input yields no chunks.
func (c Composer) Compose(records []posting.Record) []string {
	entries := c.Entries(records)
	if len(entries) == 0 {
		return nil
	}
	max := c.maxLen()

	whole := trim(strings.Join(entries, ""))
	if tgui.Len(whole) <= max {
		return []string{whole}
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	for _, e := range entries {
		if cur.Len() > 0 && tgui.Len(trim(cur.String()+e)) > max {
			chunks = append(chunks, trim(cur.String()))
			cur.Reset()
		}
		cur.WriteString(e)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, trim(cur.String()))
	}
	return chunks
}

func trim(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }
