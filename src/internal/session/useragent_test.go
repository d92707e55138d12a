package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		deviceType string
		platform   string
	}{
		{
			name:       "iphone",
			userAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15",
			deviceType: DeviceMobile,
			platform:   "ios",
		},
		{
			name:       "ipad",
			userAgent:  "Mozilla/5.0 (iPad; CPU OS 16_5 like Mac OS X) AppleWebKit/605.1.15",
			deviceType: DeviceTablet,
			platform:   "ios",
		},
		{
			name:       "android phone",
			userAgent:  "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 Mobile Safari/537.36",
			deviceType: DeviceMobile,
			platform:   "android",
		},
		{
			name:       "android tablet",
			userAgent:  "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 Safari/537.36",
			deviceType: DeviceTablet,
			platform:   "android",
		},
		{
			name:       "windows desktop",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			deviceType: DeviceDesktop,
			platform:   "windows",
		},
		{
			name:       "mac desktop",
			userAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 13_4) AppleWebKit/605.1.15",
			deviceType: DeviceDesktop,
			platform:   "macos",
		},
		{
			name:       "linux desktop",
			userAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
			deviceType: DeviceDesktop,
			platform:   "linux",
		},
		{
			name:       "empty",
			userAgent:  "",
			deviceType: DeviceUnknown,
			platform:   "unknown",
		},
		{
			name:       "unrecognized",
			userAgent:  "curl/8.1.2",
			deviceType: DeviceUnknown,
			platform:   "unknown",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deviceType, platform := ClassifyUserAgent(tc.userAgent)
			assert.Equal(t, tc.deviceType, deviceType)
			assert.Equal(t, tc.platform, platform)
		})
	}
}
