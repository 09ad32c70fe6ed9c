package parser

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"moontv/work/detect"
	"moontv/work/types"
	"moontv/work/utils"
)

// DefaultCategory is the bucket channels land in when the source
// document provides no category for them.
const DefaultCategory = "未分类"

// catalogBuilder accumulates channels into categories during a parse,
// enforcing the materialization rules shared by every source format:
// categories keep first-seen order, a channel is created once per
// (category, name) with format/quality derived from the first URL and
// name seen, repeated names merge their URLs with exact-match dedupe,
// and empty categories are dropped.
type catalogBuilder struct {
	order      []string
	categories map[string]*types.Category
	channels   map[string]map[string]*types.Channel
}

func newCatalogBuilder() *catalogBuilder {
	return &catalogBuilder{
		categories: make(map[string]*types.Category),
		channels:   make(map[string]map[string]*types.Channel),
	}
}

func (b *catalogBuilder) add(category, name, url, logo string) {
	if name == "" || url == "" {
		return
	}
	if category == "" {
		category = DefaultCategory
	}

	b.touch(category)
	cat := b.categories[category]

	if ch, ok := b.channels[category][name]; ok {
		if !ch.HasURL(url) {
			ch.URLs = append(ch.URLs, url)
		}
		if ch.Logo == "" && logo != "" {
			ch.Logo = logo
		}
		return
	}

	ch := &types.Channel{
		ID:           utils.ChannelID(category, name),
		Name:         name,
		URLs:         []string{url},
		CategoryName: category,
		Format:       detect.StreamFormat(url),
		Quality:      detect.Quality(name),
		Logo:         logo,
	}
	ch.Active.Store(true)
	b.channels[category][name] = ch
	cat.Channels = append(cat.Channels, ch)
}

// build finalizes the catalog: channels within each category are sorted
// with a Chinese-aware collator so mixed CJK/Latin names order the way a
// viewer expects, and categories that collected no channels vanish.
func (b *catalogBuilder) build() []*types.Category {
	collator := collate.New(language.Chinese)

	out := make([]*types.Category, 0, len(b.order))
	for _, name := range b.order {
		cat := b.categories[name]
		if len(cat.Channels) == 0 {
			continue
		}
		sort.SliceStable(cat.Channels, func(i, j int) bool {
			return collator.CompareString(cat.Channels[i].Name, cat.Channels[j].Name) < 0
		})
		out = append(out, cat)
	}
	return out
}

// ParseDelimited parses the bilingual delimited catalog format. A line
// ending in ",#genre#" opens a category that stays active until the
// next marker; a channel line must contain the "→" glyph, after which
// the first comma splits name from URL. Lines matching neither shape
// are skipped.
func ParseDelimited(content string) []*types.Category {
	b := newCatalogBuilder()
	current := ""

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ",#genre#") {
			current = strings.TrimSpace(strings.TrimSuffix(line, ",#genre#"))
			// force an empty category to register so first-seen order
			// holds even when its first channel line is malformed
			if current != "" {
				b.touch(current)
			}
			continue
		}

		arrow := strings.Index(line, "→")
		if arrow < 0 {
			continue
		}
		rest := line[arrow+len("→"):]

		comma := strings.Index(rest, ",")
		if comma < 0 {
			continue
		}

		name := strings.TrimSpace(rest[:comma])
		url := strings.TrimSpace(rest[comma+1:])
		b.add(current, name, url, "")
	}

	return b.build()
}

// touch registers a category without adding a channel, preserving
// first-seen marker order. Empty categories are still dropped at build.
func (b *catalogBuilder) touch(category string) {
	if _, ok := b.categories[category]; ok {
		return
	}
	b.categories[category] = &types.Category{
		ID:       utils.CategoryID(category),
		Name:     category,
		Channels: []*types.Channel{},
	}
	b.channels[category] = make(map[string]*types.Channel)
	b.order = append(b.order, category)
}

// Materialize groups flat playlist items into the canonical catalog
// model, applying the same merge, dedupe and ordering rules as the
// delimited parser.
func Materialize(items []types.PlaylistItem) []*types.Category {
	b := newCatalogBuilder()
	for _, item := range items {
		b.add(item.Category, item.Name, item.URL, item.Logo)
	}
	return b.build()
}

// ParseCatalog is the single entry point the catalog cache parses
// through. It sniffs the document kind: a JSON catalog document (object
// with a categories array), a flat JSON playlist array, the delimited
// format, or M3U text in that order of evidence. A document nothing can
// make sense of yields an empty catalog, never an error.
func ParseCatalog(content string) []*types.Category {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return []*types.Category{}
	}

	if strings.HasPrefix(trimmed, "{") {
		if cats, ok := ParseCatalogDocument(trimmed); ok {
			return cats
		}
		return []*types.Category{}
	}
	if strings.HasPrefix(trimmed, "[") {
		return Materialize(ParseJSON(trimmed))
	}
	if strings.Contains(trimmed, ",#genre#") {
		return ParseDelimited(trimmed)
	}
	return Materialize(ParseM3U(trimmed))
}
