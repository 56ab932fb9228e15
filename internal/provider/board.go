package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"jobalert/internal/posting"
)

// BoardConfig describes a job board scraped with CSS selectors.
//
// URL is a template; {term}, {location}, {country} and {remote} are replaced
// with query-escaped values. Item selects one posting; the other selectors are
// evaluated inside it. Title and Link are required.
type BoardConfig struct {
	Name       string
	URL        string
	Item       string
	Title      string
	Link       string
	Company    string
	Location   string
	Date       string
	RatePerSec float64
}

func (c BoardConfig) Validate() error {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"name", c.Name}, {"url", c.URL}, {"item", c.Item}, {"title", c.Title}, {"link", c.Link},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("html provider %q: missing %s", c.Name, strings.Join(missing, ", "))
	}
	if !strings.Contains(c.URL, "{term}") {
		return fmt.Errorf("html provider %q: url must contain {term}", c.Name)
	}
	return nil
}

// Board scrapes a server-rendered job board.
type Board struct {
	cfg    BoardConfig
	client *Client
	lim    *rate.Limiter
	opts   Options
}

func NewBoard(cfg BoardConfig, client *Client, opts Options) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Board{cfg: cfg, client: client, lim: newLimiter(cfg.RatePerSec), opts: opts}, nil
}

func (b *Board) Name() string { return b.cfg.Name }

func (b *Board) pageURL(q Query) string {
	r := strings.NewReplacer(
		"{term}", url.QueryEscape(q.SearchTerm),
		"{location}", url.QueryEscape(q.Location),
		"{country}", url.QueryEscape(q.Country),
		"{remote}", strconv.FormatBool(q.Remote),
	)
	return r.Replace(b.cfg.URL)
}

func (b *Board) Fetch(ctx context.Context, q Query) ([]posting.Record, error) {
	page := b.pageURL(q)
	base, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("%s: page url: %w", b.cfg.Name, err)
	}
	body, err := b.client.get(ctx, b.lim, page, "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", b.cfg.Name, err)
	}

	var out []posting.Record
	doc.Find(b.cfg.Item).Each(func(_ int, item *goquery.Selection) {
		rec, err := b.record(item, base)
		if err != nil {
			return
		}
		out = append(out, rec)
	})
	return b.opts.limit(out), nil
}

var errNoLink = errors.New("item without link")

func (b *Board) record(item *goquery.Selection, base *url.URL) (posting.Record, error) {
	href, ok := item.Find(b.cfg.Link).First().Attr("href")
	if !ok && item.Is(b.cfg.Link) {
		href, ok = item.Attr("href")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return posting.Record{}, errNoLink
	}
	ref, err := url.Parse(href)
	if err != nil {
		return posting.Record{}, err
	}
	link := base.ResolveReference(ref)
	link.Fragment = ""

	rec := posting.Record{
		ID:     "html-" + b.cfg.Name + "-" + linkID(link.String()),
		Site:   b.cfg.Name,
		JobURL: link.String(),
		Title:  text(item, b.cfg.Title),
	}
	rec.Company = text(item, b.cfg.Company)
	rec.Location = text(item, b.cfg.Location)
	if b.cfg.Date != "" {
		sel := item.Find(b.cfg.Date).First()
		if dt, ok := sel.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			rec.DatePosted = strings.TrimSpace(dt)
		} else {
			rec.DatePosted = cleanWhitespace(sel.Text())
		}
	}
	return rec, nil
}

func text(item *goquery.Selection, selector string) string {
	if strings.TrimSpace(selector) == "" {
		return ""
	}
	return strings.Join(strings.Fields(item.Find(selector).First().Text()), " ")
}
