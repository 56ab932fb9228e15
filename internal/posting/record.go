// Package posting defines the job posting record shared by providers, storage and the composer.
package posting

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Record is one job posting as returned by a provider.
// Only ID and JobURL carry identity; every other field is free-form and may be empty.
type Record struct {
	ID          string `json:"id"`
	Site        string `json:"site"`
	JobURL      string `json:"job_url"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	DatePosted  string `json:"date_posted"`
	JobType     string `json:"job_type"`
	Description string `json:"description"`
}

// HasKey reports whether r carries at least one usable identity key.
func (r Record) HasKey() bool {
	return strings.TrimSpace(r.ID) != "" || strings.TrimSpace(r.JobURL) != ""
}

// StoreKey returns the primary key used by the store.
// Records without an id are keyed by a hash of their URL so they still collide on re-fetch.
func (r Record) StoreKey() string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	u := strings.TrimSpace(r.JobURL)
	if u == "" {
		return ""
	}
	return URLKey(u)
}

// URLKey derives a stable key from a posting URL.
func URLKey(u string) string {
	sum := sha1.Sum([]byte(u))
	return "url:" + hex.EncodeToString(sum[:])
}
