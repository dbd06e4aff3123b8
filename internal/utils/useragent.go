package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo holds the parts of a User-Agent worth logging
type DeviceInfo struct {
	DeviceType string `json:"deviceType"` // mobile, tablet, desktop, bot
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux
}

// platforms maps lowercase OS name fragments to a platform
var platforms = []struct {
	fragment string
	platform string
}{
	{"android", "android"},
	{"iphone os", "ios"},
	{"ios", "ios"},
	{"windows", "windows"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"chrome os", "chromeos"},
	{"linux", "linux"},
	{"ubuntu", "linux"},
}

// ParseUserAgent extracts device information from a User-Agent string.
// Technicians mostly use the field app, the office uses desktop browsers.
func ParseUserAgent(userAgent string) DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return DeviceInfo{DeviceType: "unknown", OS: "Unknown", Browser: "Unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)

	info := DeviceInfo{
		DeviceType: deviceType(parser),
		OS:         "Unknown",
		Browser:    "Unknown",
		Platform:   "unknown",
	}

	osInfo := parser.OSInfo()
	if osInfo.Name != "" {
		info.OS = strings.TrimSpace(osInfo.Name + " " + osInfo.Version)
		name := strings.ToLower(osInfo.Name)
		for _, p := range platforms {
			if strings.Contains(name, p.fragment) {
				info.Platform = p.platform
				break
			}
		}
	}

	if name, _ := parser.Browser(); name != "" {
		info.Browser = name
	}

	return info
}

func deviceType(parser *ua.UserAgent) string {
	if parser.Bot() {
		return "bot"
	}
	if !parser.Mobile() {
		return "desktop"
	}
	lower := strings.ToLower(parser.UA())
	for _, indicator := range []string{"ipad", "tablet", "sm-t", "kindle"} {
		if strings.Contains(lower, indicator) {
			return "tablet"
		}
	}
	return "mobile"
}
