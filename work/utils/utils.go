package utils

import (
	"net/url"
	"strings"

	"github.com/grafana/regexp"

	"moontv/work/config"
)

// idStrip removes every rune that is not allowed in a channel or
// category identifier: ASCII alphanumerics, CJK ideographs and hyphens.
var idStrip = regexp.MustCompile(`[^a-zA-Z0-9\p{Han}-]+`)

// ChannelID derives the stable identifier for a channel from its
// category and display name. Whitespace collapses to hyphens before the
// charset restriction is applied, so "央视,CCTV 1" under "央视" becomes
// "央视-CCTV-1". The same inputs always produce the same id.
func ChannelID(category, name string) string {
	joined := strings.TrimSpace(category) + "-" + strings.TrimSpace(name)
	joined = strings.Join(strings.Fields(joined), "-")
	id := idStrip.ReplaceAllString(joined, "")

	// collapse runs of hyphens left behind by stripped punctuation
	for strings.Contains(id, "--") {
		id = strings.ReplaceAll(id, "--", "-")
	}
	return strings.Trim(id, "-")
}

// CategoryID derives a category identifier with the same charset rules.
func CategoryID(name string) string {
	id := idStrip.ReplaceAllString(strings.Join(strings.Fields(name), "-"), "")
	for strings.Contains(id, "--") {
		id = strings.ReplaceAll(id, "--", "-")
	}
	return strings.Trim(id, "-")
}

// LogURL returns either the original URL or an obfuscated version,
// depending on the configured obfuscation flag.
func LogURL(cfg *config.Config, url string) string {
	if cfg.ObfuscateURLs {
		return ObfuscateURL(url)
	}
	return url
}

// ObfuscateURL masks the path, query and fragment of a URL for logging,
// keeping only scheme and host visible.
func ObfuscateURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return "***OBFUSCATED***"
	}

	result := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		result += "/***"
	}
	if u.RawQuery != "" {
		result += "?***"
	}
	if u.Fragment != "" {
		result += "#***"
	}
	return result
}
