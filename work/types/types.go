package types

import (
	"strconv"
	"sync/atomic"
	"time"
)

// StreamFormat classifies the wire protocol of a channel's stream URLs,
// enabling the playback layer to decide between the adaptive-streaming
// engine and direct native playback. The classification is heuristic,
// derived from the URL alone at channel creation time.
type StreamFormat string

// Supported stream protocols. HLS is the default bias for live content
// when no other marker matches.
const (
	FormatHLS  StreamFormat = "hls"
	FormatDASH StreamFormat = "dash"
	FormatFLV  StreamFormat = "flv"
	FormatRTMP StreamFormat = "rtmp"
)

// Quality is the resolution tier derived from a channel's display name.
type Quality string

const (
	QualitySD  Quality = "SD"
	QualityHD  Quality = "HD"
	QualityFHD Quality = "FHD"
)

// Flag is a bool that liveness probes flip atomically while concurrent
// readers serialize the same published snapshot. On the wire it is a
// plain JSON bool.
type Flag struct {
	v atomic.Bool
}

// Store atomically sets the flag.
func (f *Flag) Store(b bool) { f.v.Store(b) }

// Load atomically reads the flag.
func (f *Flag) Load() bool { return f.v.Load() }

func (f *Flag) MarshalJSON() ([]byte, error) {
	return strconv.AppendBool(nil, f.v.Load()), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	b, err := strconv.ParseBool(string(data))
	if err != nil {
		return err
	}
	f.v.Store(b)
	return nil
}

// Channel is a single live-television channel with an ordered list of
// candidate stream URLs. The URL order is the fallback order: the first
// entry is the preferred source, and the playback controller walks the
// list on failure. Channels are created during parsing; afterwards only
// the Active flag changes, flipped atomically by liveness probes so the
// rest of the snapshot stays read-only for concurrent readers. A reload
// produces a fresh collection rather than mutating channels.
//
// Invariant: URLs is never empty once a channel has been materialized,
// and it never contains the same URL twice.
type Channel struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URLs         []string     `json:"urls"`
	CategoryName string       `json:"category"`
	Format       StreamFormat `json:"format"`
	Quality      Quality      `json:"quality"`
	Active       Flag         `json:"active"`
	Language     string       `json:"language,omitempty"`
	Country      string       `json:"country,omitempty"`
	Logo         string       `json:"logo,omitempty"`
	Description  string       `json:"description,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
}

// HasURL reports whether the channel already carries the exact URL.
// Used during parsing to suppress duplicate candidates.
func (c *Channel) HasURL(url string) bool {
	for _, u := range c.URLs {
		if u == url {
			return true
		}
	}
	return false
}

// Category groups channels under one catalog heading. Categories keep
// the first-seen order of their markers in the source document.
type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Channels []*Channel `json:"channels"`
}

// PlaylistItem is the intermediate record produced by the flat playlist
// formats (M3U, JSON arrays) before channels are materialized into
// categories. It never leaves the parser package's API surface.
type PlaylistItem struct {
	Name     string
	URL      string
	Category string
	Logo     string
}

// CatalogSnapshot is the immutable result of one catalog load: the full
// category list plus the load timestamp. It is owned by the catalog
// cache, replaced wholesale on reload and never mutated, so concurrent
// readers need no locking.
type CatalogSnapshot struct {
	Categories []*Category
	LoadedAt   time.Time
}

// EmptySnapshot returns a snapshot with no categories, used when a load
// fails before any catalog was ever published.
func EmptySnapshot() *CatalogSnapshot {
	return &CatalogSnapshot{Categories: []*Category{}, LoadedAt: time.Time{}}
}

// ChannelCount returns the total number of channels across all categories.
func (s *CatalogSnapshot) ChannelCount() int {
	n := 0
	for _, cat := range s.Categories {
		n += len(cat.Channels)
	}
	return n
}

// FindChannel walks the snapshot for a channel with the given id.
// Returns nil when no channel matches.
func (s *CatalogSnapshot) FindChannel(id string) *Channel {
	for _, cat := range s.Categories {
		for _, ch := range cat.Channels {
			if ch.ID == id {
				return ch
			}
		}
	}
	return nil
}
