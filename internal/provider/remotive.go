package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"jobalert/internal/posting"
)

const DefaultRemotiveURL = "https://remotive.com/api/remote-jobs"

// Remotive queries the Remotive public API.
type Remotive struct {
	client  *Client
	baseURL string
	lim     *rate.Limiter
	opts    Options
}

func NewRemotive(client *Client, baseURL string, ratePerSec float64, opts Options) *Remotive {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultRemotiveURL
	}
	return &Remotive{client: client, baseURL: baseURL, lim: newLimiter(ratePerSec), opts: opts}
}

func (r *Remotive) Name() string { return "remotive" }

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID                        int64  `json:"id"`
	URL                       string `json:"url"`
	Title                     string `json:"title"`
	CompanyName               string `json:"company_name"`
	JobType                   string `json:"job_type"`
	PublicationDate           string `json:"publication_date"`
	CandidateRequiredLocation string `json:"candidate_required_location"`
	Description               string `json:"description"`
}

func (r *Remotive) Fetch(ctx context.Context, q Query) ([]posting.Record, error) {
	n := r.opts.ResultsWanted
	if n <= 0 {
		n = DefaultResultsWanted
	}
	v := url.Values{}
	v.Set("search", q.SearchTerm)
	// Location filtering happens locally, so ask for more than we keep.
	if q.Remote {
		v.Set("limit", strconv.Itoa(n))
	} else {
		v.Set("limit", strconv.Itoa(n*5))
	}
	u := r.baseURL + "?" + v.Encode()

	body, err := r.client.get(ctx, r.lim, u, "application/json")
	if err != nil {
		return nil, err
	}
	var resp remotiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("remotive: decode response: %w", err)
	}

	out := make([]posting.Record, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		if !q.Remote && !locationMatches(j.CandidateRequiredLocation, q.Location) {
			continue
		}
		rec := posting.Record{
			Site:        r.Name(),
			JobURL:      strings.TrimSpace(j.URL),
			Title:       strings.TrimSpace(j.Title),
			Company:     strings.TrimSpace(j.CompanyName),
			Location:    strings.TrimSpace(j.CandidateRequiredLocation),
			DatePosted:  j.PublicationDate,
			JobType:     j.JobType,
			Description: htmlToText(j.Description),
		}
		if j.ID != 0 {
			rec.ID = "remotive-" + strconv.FormatInt(j.ID, 10)
		}
		out = append(out, rec)
	}
	return r.opts.limit(out), nil
}

// locationMatches reports whether a job's stated location covers want.
// Jobs open worldwide or without a stated location always match.
func locationMatches(have, want string) bool {
	have = strings.ToLower(strings.TrimSpace(have))
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" || have == "" {
		return true
	}
	if strings.Contains(have, want) {
		return true
	}
	for _, w := range []string{"worldwide", "anywhere"} {
		if strings.Contains(have, w) {
			return true
		}
	}
	return false
}
