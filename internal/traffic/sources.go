package traffic

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SocialPlatform groups the referrer domains belonging to one social network.
// Platforms are matched in slice order, so more specific domains should come
// before generic ones.
type SocialPlatform struct {
	Name    string   `yaml:"name"`
	Domains []string `yaml:"domains"`
}

// SourceTable holds the referrer domain patterns used to classify sessions.
// The table is plain data: it can be overridden at startup from a YAML file
// without touching the classifier logic.
type SourceTable struct {
	SearchEngines []string         `yaml:"search_engines"`
	Social        []SocialPlatform `yaml:"social"`
	Webmail       []string         `yaml:"webmail"`
	PaidSearch    []string         `yaml:"paid_search"`
}

// DefaultSourceTable returns the built-in referrer classification table.
func DefaultSourceTable() SourceTable {
	return SourceTable{
		SearchEngines: []string{
			"google.com", "bing.com", "yahoo.com", "duckduckgo.com",
			"baidu.com", "yandex.com", "ecosia.org",
		},
		Social: []SocialPlatform{
			{Name: "facebook", Domains: []string{"facebook.com", "fb.com", "m.facebook.com"}},
			{Name: "twitter", Domains: []string{"twitter.com", "x.com", "t.co"}},
			{Name: "linkedin", Domains: []string{"linkedin.com", "lnkd.in"}},
			{Name: "instagram", Domains: []string{"instagram.com"}},
			{Name: "youtube", Domains: []string{"youtube.com", "youtu.be"}},
			{Name: "tiktok", Domains: []string{"tiktok.com"}},
			{Name: "reddit", Domains: []string{"reddit.com"}},
			{Name: "pinterest", Domains: []string{"pinterest.com", "pin.it"}},
		},
		Webmail:    []string{"mail.google.com", "outlook.com", "yahoo.com/mail"},
		PaidSearch: []string{"googleads.", "bingads.", "ads.yahoo."},
	}
}

// LoadSourceTable reads a SourceTable from a YAML file. Sections missing from
// the file fall back to the built-in defaults.
func LoadSourceTable(path string) (SourceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceTable{}, fmt.Errorf("failed to read source table: %w", err)
	}

	table := SourceTable{}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return SourceTable{}, fmt.Errorf("failed to parse source table: %w", err)
	}

	defaults := DefaultSourceTable()
	if len(table.SearchEngines) == 0 {
		table.SearchEngines = defaults.SearchEngines
	}
	if len(table.Social) == 0 {
		table.Social = defaults.Social
	}
	if len(table.Webmail) == 0 {
		table.Webmail = defaults.Webmail
	}
	if len(table.PaidSearch) == 0 {
		table.PaidSearch = defaults.PaidSearch
	}

	return table, nil
}
