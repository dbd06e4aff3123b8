package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		platform   string
		deviceType string
	}{
		{
			name:       "Android phone",
			userAgent:  "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36",
			platform:   "android",
			deviceType: "mobile",
		},
		{
			name:       "Windows desktop",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36",
			platform:   "windows",
			deviceType: "desktop",
		},
		{
			name:       "Empty",
			userAgent:  "",
			platform:   "unknown",
			deviceType: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseUserAgent(tt.userAgent)
			assert.Equal(t, tt.platform, info.Platform)
			assert.Equal(t, tt.deviceType, info.DeviceType)
		})
	}
}
