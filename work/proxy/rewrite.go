package proxy

import (
	"net/url"
	"strings"
)

// Tunnel path prefixes. A stream URL whose scheme conflicts with the
// page scheme is rewritten onto one of these so the browser fetches it
// same-origin and the gateway forwards it upstream with the original
// scheme restored.
const (
	// SecureTunnelPrefix carries https upstreams for http pages.
	SecureTunnelPrefix = "/proxy/secure/"
	// PlainTunnelPrefix carries http upstreams for https pages.
	PlainTunnelPrefix = "/proxy/plain/"
)

// Rewrite maps a stream URL onto a tunnel path when its scheme would
// trigger mixed-content blocking against the given page scheme. URLs
// that already match the page scheme, use a non-http scheme (rtmp and
// friends cannot be tunneled), or fail to parse are returned
// unchanged.
func Rewrite(pageScheme, target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target
	}

	var prefix string
	switch {
	case pageScheme == "http" && u.Scheme == "https":
		prefix = SecureTunnelPrefix
	case pageScheme == "https" && u.Scheme == "http":
		prefix = PlainTunnelPrefix
	default:
		return target
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(u.Host)
	if u.Path == "" {
		b.WriteString("/")
	} else {
		b.WriteString(u.EscapedPath())
	}
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// UpstreamURL reconstructs the original stream URL from a tunnel
// request path (already stripped of the prefix) and the scheme the
// prefix implies. Returns nil when the path carries no host.
func UpstreamURL(scheme, tunnelPath, rawQuery string) *url.URL {
	tunnelPath = strings.TrimPrefix(tunnelPath, "/")
	if tunnelPath == "" {
		return nil
	}

	host := tunnelPath
	path := "/"
	if i := strings.Index(tunnelPath, "/"); i >= 0 {
		host = tunnelPath[:i]
		path = tunnelPath[i:]
	}
	if host == "" {
		return nil
	}

	return &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: rawQuery,
	}
}
