package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"jobalert/internal/posting"
)

const DefaultRemoteOKURL = "https://remoteok.com/api"

// RemoteOK queries the RemoteOK public API. Its feed only carries remote
// jobs, so location queries are filtered by the job's stated location.
type RemoteOK struct {
	client  *Client
	baseURL string
	lim     *rate.Limiter
	opts    Options
}

func NewRemoteOK(client *Client, baseURL string, ratePerSec float64, opts Options) *RemoteOK {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultRemoteOKURL
	}
	return &RemoteOK{client: client, baseURL: baseURL, lim: newLimiter(ratePerSec), opts: opts}
}

func (r *RemoteOK) Name() string { return "remoteok" }

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type remoteOKJob struct {
	ID          flexString `json:"id"`
	Slug        string     `json:"slug"`
	Company     string     `json:"company"`
	Position    string     `json:"position"`
	Tags        []string   `json:"tags"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	URL         string     `json:"url"`
	Date        string     `json:"date"`
}

func (r *RemoteOK) Fetch(ctx context.Context, q Query) ([]posting.Record, error) {
	tag := strings.ToLower(strings.Join(strings.Fields(q.SearchTerm), "-"))
	u := r.baseURL + "?" + url.Values{"tag": {tag}}.Encode()

	body, err := r.client.get(ctx, r.lim, u, "application/json")
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("remoteok: decode response: %w", err)
	}
	// The first element is the API's legal notice.
	if len(raw) > 0 {
		raw = raw[1:]
	}

	out := make([]posting.Record, 0, len(raw))
	for _, m := range raw {
		var j remoteOKJob
		if err := json.Unmarshal(m, &j); err != nil {
			continue
		}
		if !q.Remote && !locationMatches(j.Location, q.Location) {
			continue
		}
		link := strings.TrimSpace(j.URL)
		if link == "" && j.Slug != "" {
			link = "https://remoteok.com/remote-jobs/" + j.Slug
		}
		rec := posting.Record{
			Site:        r.Name(),
			JobURL:      link,
			Title:       strings.TrimSpace(j.Position),
			Company:     strings.TrimSpace(j.Company),
			Location:    strings.TrimSpace(j.Location),
			DatePosted:  j.Date,
			JobType:     jobTypeFromTags(j.Tags),
			Description: htmlToText(j.Description),
		}
		if id := strings.TrimSpace(string(j.ID)); id != "" {
			rec.ID = "remoteok-" + id
		}
		out = append(out, rec)
	}
	return r.opts.limit(out), nil
}

func jobTypeFromTags(tags []string) string {
	for _, t := range tags {
		switch strings.ToLower(t) {
		case "full-time", "fulltime", "permanent":
			return "fulltime"
		case "part-time", "parttime":
			return "parttime"
		case "contract", "contractor", "freelance":
			return "contract"
		case "internship", "intern":
			return "internship"
		}
	}
	return ""
}
