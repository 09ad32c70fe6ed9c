package parser

import (
	"encoding/json"

	"moontv/work/detect"
	"moontv/work/types"
	"moontv/work/utils"
)

// Field aliases accepted by the flat JSON playlist format. Each logical
// field has an explicit ordered alias list: the first key present in an
// entry wins, applied deterministically regardless of map iteration.
var (
	nameAliases     = []string{"name", "title"}
	urlAliases      = []string{"url", "stream"}
	categoryAliases = []string{"category", "group"}
	logoAliases     = []string{"logo", "icon"}
)

// ParseJSON converts a flat JSON playlist array into playlist items.
// Malformed JSON or a non-array top level yields an empty result, never
// an error; entries missing a usable name or URL are skipped.
func ParseJSON(content string) []types.PlaylistItem {
	var raw []map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return []types.PlaylistItem{}
	}

	items := make([]types.PlaylistItem, 0, len(raw))
	for _, entry := range raw {
		item := types.PlaylistItem{
			Name:     firstString(entry, nameAliases),
			URL:      firstString(entry, urlAliases),
			Category: firstString(entry, categoryAliases),
			Logo:     firstString(entry, logoAliases),
		}
		if item.Name == "" || item.URL == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// firstString returns the value of the first alias present as a
// non-empty string.
func firstString(entry map[string]any, aliases []string) string {
	for _, key := range aliases {
		if v, ok := entry[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// jsonItem is the canonical field naming used when serializing back out.
type jsonItem struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Logo     string `json:"logo,omitempty"`
}

// ToJSON serializes categories to the flat JSON playlist format using
// each channel's first URL only, the same lossy projection as ToM3U.
func ToJSON(categories []*types.Category) string {
	items := make([]jsonItem, 0)
	for _, cat := range categories {
		for _, ch := range cat.Channels {
			if len(ch.URLs) == 0 {
				continue
			}
			items = append(items, jsonItem{
				Name:     ch.Name,
				URL:      ch.URLs[0],
				Category: cat.Name,
				Logo:     ch.Logo,
			})
		}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// catalogDocument is the source-of-record JSON shape: a categories array
// with fully specified channels.
type catalogDocument struct {
	Categories []struct {
		ID       string           `json:"id"`
		Name     string           `json:"name"`
		Channels []*types.Channel `json:"channels"`
	} `json:"categories"`
}

// ParseCatalogDocument decodes the structured catalog source document.
// The second return is false when the content is not such a document.
// Channels without any URL are dropped, duplicate URLs are suppressed,
// and missing ids and derived fields are filled in during decode so the
// invariants hold regardless of how carefully the document was written.
func ParseCatalogDocument(content string) ([]*types.Category, bool) {
	var doc catalogDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, false
	}
	if doc.Categories == nil {
		return nil, false
	}

	out := make([]*types.Category, 0, len(doc.Categories))
	for _, raw := range doc.Categories {
		if raw.Name == "" {
			continue
		}
		cat := &types.Category{
			ID:       raw.ID,
			Name:     raw.Name,
			Channels: make([]*types.Channel, 0, len(raw.Channels)),
		}
		if cat.ID == "" {
			cat.ID = utils.CategoryID(raw.Name)
		}

		for _, ch := range raw.Channels {
			if ch == nil || ch.Name == "" {
				continue
			}
			urls := dedupeURLs(ch.URLs)
			if len(urls) == 0 {
				continue
			}
			ch.URLs = urls
			ch.CategoryName = raw.Name
			if ch.ID == "" {
				ch.ID = utils.ChannelID(raw.Name, ch.Name)
			}
			if ch.Format == "" {
				ch.Format = detect.StreamFormat(urls[0])
			}
			if ch.Quality == "" {
				ch.Quality = detect.Quality(ch.Name)
			}
			cat.Channels = append(cat.Channels, ch)
		}

		if len(cat.Channels) > 0 {
			out = append(out, cat)
		}
	}
	return out, true
}

func dedupeURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
