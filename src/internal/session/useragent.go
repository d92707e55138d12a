package session

import "strings"

// Device type constants
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// ClassifyUserAgent derives a coarse device type and platform from a raw
// User-Agent header. Heuristic; feeds analytics only, never authorization.
func ClassifyUserAgent(userAgent string) (deviceType, platform string) {
	if userAgent == "" {
		return DeviceUnknown, "unknown"
	}

	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad"):
		return DeviceTablet, "ios"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipod"):
		return DeviceMobile, "ios"
	case strings.Contains(ua, "android") && strings.Contains(ua, "mobile"):
		return DeviceMobile, "android"
	case strings.Contains(ua, "android"):
		return DeviceTablet, "android"
	case strings.Contains(ua, "windows"):
		return DeviceDesktop, "windows"
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os"):
		return DeviceDesktop, "macos"
	case strings.Contains(ua, "linux"):
		return DeviceDesktop, "linux"
	}

	return DeviceUnknown, "unknown"
}
