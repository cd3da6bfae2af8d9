// Package device derives human-readable device names from User-Agent
// strings. The names end up in credential metadata so an employee reviewing
// their magic links or API keys can recognize where each one came from.
package device

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent formats a raw User-Agent header as "Browser on Platform".
// Unknown or empty agents degrade to a stable placeholder rather than
// leaking the raw header into stored metadata.
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	platform := ua.Platform()

	if ua.OS() != "" {
		platform = ua.OS()
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if platform == "" {
		platform = "Unknown Platform"
	}

	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, platform))
}
