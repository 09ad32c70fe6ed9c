package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"moontv/work/types"
)

// Package catalog is the read side of the channel catalog: category
// listings, paged channel queries, and free-text search over a
// snapshot. All functions treat the snapshot as immutable.

// CategorySummary is a category plus its channel count, for listings
// that do not need the channels themselves.
type CategorySummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ChannelCount int    `json:"channelCount"`
}

// Categories lists every category in catalog order with counts.
func Categories(snap *types.CatalogSnapshot) []CategorySummary {
	out := make([]CategorySummary, 0, len(snap.Categories))
	for _, cat := range snap.Categories {
		out = append(out, CategorySummary{
			ID:           cat.ID,
			Name:         cat.Name,
			ChannelCount: len(cat.Channels),
		})
	}
	return out
}

// Sort orders accepted by Channels.
const (
	SortDefault = "default"
	SortName    = "name"
	SortQuality = "quality"
)

// ChannelPage is one page of a channel listing.
type ChannelPage struct {
	Channels []*types.Channel `json:"channels"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
}

// Channels returns one page of a category's channels. An empty or
// unknown category ID yields an empty page rather than an error. Page
// numbers start at 1; out-of-range pages come back empty with the
// correct total.
func Channels(snap *types.CatalogSnapshot, categoryID string, page, pageSize int, sortBy string) ChannelPage {
	var channels []*types.Channel
	for _, cat := range snap.Categories {
		if cat.ID == categoryID {
			channels = append([]*types.Channel(nil), cat.Channels...)
			break
		}
	}

	sortChannels(channels, sortBy)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	total := len(channels)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return ChannelPage{
		Channels: channels[start:end],
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
}

var qualityRank = map[types.Quality]int{
	types.QualityFHD: 0,
	types.QualityHD:  1,
	types.QualitySD:  2,
}

func sortChannels(channels []*types.Channel, sortBy string) {
	switch sortBy {
	case SortName:
		c := collate.New(language.Chinese)
		sort.SliceStable(channels, func(i, j int) bool {
			return c.CompareString(channels[i].Name, channels[j].Name) < 0
		})
	case SortQuality:
		sort.SliceStable(channels, func(i, j int) bool {
			return qualityRank[channels[i].Quality] < qualityRank[channels[j].Quality]
		})
	default:
		// Catalog order.
	}
}

// Search matches q case-insensitively against channel name, category,
// description, and tags, across the whole snapshot. A blank query
// returns nothing.
func Search(snap *types.CatalogSnapshot, q string) []*types.Channel {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}

	var out []*types.Channel
	for _, cat := range snap.Categories {
		for _, ch := range cat.Channels {
			if matches(ch, q) {
				out = append(out, ch)
			}
		}
	}
	return out
}

func matches(ch *types.Channel, q string) bool {
	if strings.Contains(strings.ToLower(ch.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(ch.CategoryName), q) {
		return true
	}
	if strings.Contains(strings.ToLower(ch.Description), q) {
		return true
	}
	for _, tag := range ch.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// ChannelByID finds a channel anywhere in the snapshot.
func ChannelByID(snap *types.CatalogSnapshot, id string) *types.Channel {
	return snap.FindChannel(id)
}
