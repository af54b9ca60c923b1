// Package traffic classifies session referrers into traffic sources.
package traffic

import (
	"strings"
	"sync"
)

// Well-known traffic source values. Social sources use the "social_" prefix
// followed by the platform name (e.g. "social_twitter").
const (
	SourceDirect        = "direct"
	SourceOrganicSearch = "organic_search"
	SourceEmail         = "email"
	SourcePaidSearch    = "paid_search"
	SourceReferral      = "referral"

	SocialPrefix = "social_"
)

// Classifier maps a raw referrer string to a traffic source. Classification
// is a pure lookup: same referrer in, same source out.
type Classifier struct {
	table SourceTable
}

// NewClassifier builds a classifier from the given source table.
func NewClassifier(table SourceTable) *Classifier {
	return &Classifier{table: table}
}

// Classify returns the traffic source for a referrer. Matching is
// case-insensitive substring matching over the full referrer, checked in
// fixed order: direct, organic search, social, email, paid search. Anything
// that matches nothing is a plain referral.
func (c *Classifier) Classify(referrer string) string {
	if referrer == "" {
		return SourceDirect
	}

	ref := strings.ToLower(referrer)

	for _, engine := range c.table.SearchEngines {
		if strings.Contains(ref, engine) {
			return SourceOrganicSearch
		}
	}

	for _, platform := range c.table.Social {
		for _, domain := range platform.Domains {
			if strings.Contains(ref, domain) {
				return SocialPrefix + platform.Name
			}
		}
	}

	for _, domain := range c.table.Webmail {
		if strings.Contains(ref, domain) {
			return SourceEmail
		}
	}

	for _, pattern := range c.table.PaidSearch {
		if strings.Contains(ref, pattern) {
			return SourcePaidSearch
		}
	}

	return SourceReferral
}

// SocialPlatformOf returns the platform name when source is a social source,
// and false otherwise.
func SocialPlatformOf(source string) (string, bool) {
	if strings.HasPrefix(source, SocialPrefix) {
		return strings.TrimPrefix(source, SocialPrefix), true
	}
	return "", false
}

var (
	defaultClassifier   = NewClassifier(DefaultSourceTable())
	defaultClassifierMu sync.RWMutex
)

// Classify classifies a referrer using the process-wide classifier.
func Classify(referrer string) string {
	defaultClassifierMu.RLock()
	defer defaultClassifierMu.RUnlock()
	return defaultClassifier.Classify(referrer)
}

// SetSourceTable replaces the process-wide classification table. Intended to
// be called once at startup when a YAML override is configured.
func SetSourceTable(table SourceTable) {
	defaultClassifierMu.Lock()
	defer defaultClassifierMu.Unlock()
	defaultClassifier = NewClassifier(table)
}
