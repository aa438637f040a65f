// ABOUTME: Manages the recently used login emails offered by the login form
// ABOUTME: Stores addresses, never credentials, in recent.json under the config directory

package recentlogins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// MaxRecent is the maximum number of addresses to keep
const MaxRecent = 5

// RecentLogins manages the list of recently used email addresses
type RecentLogins struct {
	configDir string
	emails    []string
}

type recentData struct {
	Emails []string `json:"emails"`
}

// New creates a manager storing its file in configDir. An empty configDir keeps the
// list in memory only.
func New(configDir string) *RecentLogins {
	return &RecentLogins{configDir: configDir}
}

func (r *RecentLogins) configFile() string {
	return filepath.Join(r.configDir, "recent.json")
}

// Load reads the list from disk. A missing or corrupt file yields an empty list.
func (r *RecentLogins) Load() ([]string, error) {
	if r.configDir == "" {
		if r.emails == nil {
			r.emails = []string{}
		}
		return r.emails, nil
	}

	data, err := os.ReadFile(r.configFile())
	if os.IsNotExist(err) {
		r.emails = []string{}
		return r.emails, nil
	}
	if err != nil {
		return nil, err
	}

	var recent recentData
	if err := json.Unmarshal(data, &recent); err != nil {
		// Invalid JSON, start fresh
		r.emails = []string{}
		return r.emails, nil
	}

	r.emails = dedupe(recent.Emails)
	return r.emails, nil
}

// Save writes the list to disk, trimmed to MaxRecent.
func (r *RecentLogins) Save(emails []string) error {
	emails = dedupe(emails)
	if len(emails) > MaxRecent {
		emails = emails[:MaxRecent]
	}
	r.emails = emails

	if r.configDir == "" {
		return nil
	}
	if err := os.MkdirAll(r.configDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(recentData{Emails: emails}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.configFile(), data, 0600)
}

// Add moves email to the front of the list, inserting it if new.
func (r *RecentLogins) Add(email string) error {
	email = normalize(email)
	if email == "" {
		return nil
	}
	if r.emails == nil {
		if _, err := r.Load(); err != nil {
			r.emails = []string{}
		}
	}

	next := make([]string, 0, len(r.emails)+1)
	next = append(next, email)
	for _, e := range r.emails {
		if e != email {
			next = append(next, e)
		}
	}
	return r.Save(next)
}

// List returns the current list, loading it on first use.
func (r *RecentLogins) List() []string {
	if r.emails == nil {
		r.Load()
	}
	return r.emails
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// dedupe normalizes and drops empty and repeated addresses, keeping first occurrences.
func dedupe(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = normalize(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
