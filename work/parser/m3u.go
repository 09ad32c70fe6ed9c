package parser

import (
	"fmt"
	"strings"

	"moontv/work/types"
)

// ParseM3U converts M3U text into playlist items, preserving file order.
// An #EXTINF: line carries the metadata for the URL line that follows
// it; a bare line containing ",http" is treated as a direct Name,URL
// pair. Every other line is skipped: one malformed line never fails the
// document.
func ParseM3U(content string) []types.PlaylistItem {
	items := make([]types.PlaylistItem, 0)

	var pending *types.PlaylistItem
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			pending = parseEXTINF(line)
			continue
		}

		if strings.HasPrefix(line, "#") {
			// directive or comment, irrelevant here
			continue
		}

		// the first non-# line after an EXTINF is its URL, even when it
		// happens to contain a comma
		if pending != nil {
			pending.URL = line
			items = append(items, *pending)
			pending = nil
			continue
		}

		if idx := strings.Index(line, ","); idx > 0 && strings.Contains(line, ",http") {
			items = append(items, types.PlaylistItem{
				Name: strings.TrimSpace(line[:idx]),
				URL:  strings.TrimSpace(line[idx+1:]),
			})
		}
	}

	return items
}

// parseEXTINF extracts the title and the attributes this catalog cares
// about (group-title, tvg-logo) from an #EXTINF: payload. The title is
// everything after the last comma outside of quotes.
func parseEXTINF(line string) *types.PlaylistItem {
	payload := strings.TrimPrefix(line, "#EXTINF:")

	lastComma := -1
	inQuotes := false
	for i := len(payload) - 1; i >= 0; i-- {
		if payload[i] == '"' {
			inQuotes = !inQuotes
		} else if payload[i] == ',' && !inQuotes {
			lastComma = i
			break
		}
	}

	item := &types.PlaylistItem{}
	attrPart := payload
	if lastComma >= 0 {
		item.Name = strings.TrimSpace(payload[lastComma+1:])
		attrPart = payload[:lastComma]
	}

	item.Category = extractAttr(attrPart, "group-title")
	item.Logo = extractAttr(attrPart, "tvg-logo")
	return item
}

// extractAttr pulls one key="value" attribute out of an EXTINF payload.
func extractAttr(payload, key string) string {
	marker := key + `="`
	start := strings.Index(payload, marker)
	if start < 0 {
		return ""
	}
	rest := payload[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// ToM3U serializes categories to M3U text using each channel's first URL
// only. Collapsing multiple candidate URLs down to one is a deliberate
// lossy projection: the M3U format has no notion of fallback sources.
func ToM3U(categories []*types.Category) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")

	for _, cat := range categories {
		for _, ch := range cat.Channels {
			if len(ch.URLs) == 0 {
				continue
			}
			b.WriteString("#EXTINF:-1")
			if ch.Logo != "" {
				fmt.Fprintf(&b, " tvg-logo=%q", ch.Logo)
			}
			fmt.Fprintf(&b, " group-title=%q", cat.Name)
			fmt.Fprintf(&b, ",%s\n", ch.Name)
			b.WriteString(ch.URLs[0] + "\n")
		}
	}

	return b.String()
}
