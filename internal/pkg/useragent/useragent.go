// Package useragent parses User-Agent headers into the device, browser and
// operating system values stored on sessions. Pattern tables live in an
// embedded YAML file.
package useragent

import (
	"embed"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Device type values stored on sessions.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// UserAgent is the parsed result for one User-Agent string.
type UserAgent struct {
	UserAgent string
	OS        string
	Browser   string
	Device    string
	Bot       bool
}

//go:embed patterns.yml
var patternFiles embed.FS

type patternEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type patternTable struct {
	Bots             []patternEntry `yaml:"bots"`
	Browsers         []patternEntry `yaml:"browsers"`
	OperatingSystems []patternEntry `yaml:"operating_systems"`
}

// regexCache compiles patterns lazily and reuses them across lookups.
type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *regexCache {
	return &regexCache{compiled: make(map[string]*pcre.Regexp)}
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

var (
	parser     *uaParser
	parserOnce sync.Once
)

type uaParser struct {
	table patternTable
	cache *regexCache
}

func getParser() *uaParser {
	parserOnce.Do(func() {
		parser = &uaParser{cache: newRegexCache()}
		if data, err := patternFiles.ReadFile("patterns.yml"); err == nil {
			_ = yaml.Unmarshal(data, &parser.table)
		}
	})
	return parser
}

func (p *uaParser) matchFirst(entries []patternEntry, userAgent string) (string, bool) {
	for _, entry := range entries {
		regex, err := p.cache.get(entry.Regex)
		if err != nil {
			continue
		}
		if regex.MatchString(userAgent) {
			return entry.Name, true
		}
	}
	return "", false
}

// parseDevice detects the device class from well-known substrings. Tablet
// indicators are checked first because tablet user agents often contain
// "Mobile" as well.
func parseDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		return DeviceTablet
	}
	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") ||
		strings.Contains(ua, "iphone") || strings.Contains(ua, "ipod") ||
		strings.Contains(ua, "windows phone") {
		return DeviceMobile
	}
	return DeviceDesktop
}

// Parse extracts the device, browser and OS from a User-Agent string. Bots
// are flagged so callers can drop them before tracking.
func Parse(userAgent string) UserAgent {
	p := getParser()

	if name, ok := p.matchFirst(p.table.Bots, userAgent); ok {
		return UserAgent{
			UserAgent: userAgent,
			OS:        "unknown",
			Browser:   name,
			Device:    "bot",
			Bot:       true,
		}
	}

	browser, ok := p.matchFirst(p.table.Browsers, userAgent)
	if !ok {
		browser = "unknown"
	}
	os, ok := p.matchFirst(p.table.OperatingSystems, userAgent)
	if !ok {
		os = "unknown"
	}

	return UserAgent{
		UserAgent: userAgent,
		OS:        os,
		Browser:   browser,
		Device:    parseDevice(userAgent),
	}
}
