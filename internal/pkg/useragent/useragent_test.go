package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariIPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	safariIPadUA    = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	edgeWindowsUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	googlebotUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestParseDesktopBrowser(t *testing.T) {
	ua := Parse(chromeWindowsUA)

	assert.False(t, ua.Bot)
	assert.Equal(t, "Chrome", ua.Browser)
	assert.Equal(t, "Windows", ua.OS)
	assert.Equal(t, DeviceDesktop, ua.Device)
}

func TestParseMobileBrowser(t *testing.T) {
	ua := Parse(safariIPhoneUA)

	assert.False(t, ua.Bot)
	assert.Equal(t, "Safari", ua.Browser)
	assert.Equal(t, "iOS", ua.OS)
	assert.Equal(t, DeviceMobile, ua.Device)
}

func TestParseTablet(t *testing.T) {
	ua := Parse(safariIPadUA)
	assert.Equal(t, DeviceTablet, ua.Device)
}

func TestParseFirefoxOnLinux(t *testing.T) {
	ua := Parse(firefoxLinuxUA)
	assert.Equal(t, "Firefox", ua.Browser)
	assert.Equal(t, "Linux", ua.OS)
}

func TestEdgeWinsOverChrome(t *testing.T) {
	// Edge user agents also contain "Chrome/"; the Edge rule must match first.
	ua := Parse(edgeWindowsUA)
	assert.Equal(t, "Edge", ua.Browser)
}

func TestParseBot(t *testing.T) {
	ua := Parse(googlebotUA)

	assert.True(t, ua.Bot)
	assert.Equal(t, "Googlebot", ua.Browser)
	assert.Equal(t, "bot", ua.Device)
}

func TestParseGenericCrawler(t *testing.T) {
	assert.True(t, Parse("curl/8.4.0").Bot)
	assert.True(t, Parse("python-requests/2.31.0").Bot)
}

func TestParseUnknownUserAgent(t *testing.T) {
	ua := Parse("SomethingEntirelyCustom/1.0")

	assert.False(t, ua.Bot)
	assert.Equal(t, "unknown", ua.Browser)
	assert.Equal(t, "unknown", ua.OS)
	assert.Equal(t, DeviceDesktop, ua.Device)
}
