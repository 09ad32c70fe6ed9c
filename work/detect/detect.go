package detect

import (
	"strings"

	"moontv/work/types"
)

// StreamFormat classifies a stream URL by protocol. The match is
// case-insensitive and ordered: HLS markers win over DASH, DASH over FLV,
// FLV over RTMP. Anything unrecognized is treated as HLS, the most common
// live-streaming protocol. Pure function, never fails.
func StreamFormat(url string) types.StreamFormat {
	lower := strings.ToLower(url)

	switch {
	case strings.Contains(lower, ".m3u8") || strings.Contains(lower, "hls"):
		return types.FormatHLS
	case strings.Contains(lower, ".mpd") || strings.Contains(lower, "dash"):
		return types.FormatDASH
	case strings.Contains(lower, ".flv"):
		return types.FormatFLV
	case strings.HasPrefix(lower, "rtmp://"):
		return types.FormatRTMP
	default:
		return types.FormatHLS
	}
}

// fhdKeywords and hdKeywords are checked against the channel name only,
// never the URL. FHD markers are tested first so "FHD" is not swallowed
// by the "hd" substring match.
var (
	fhdKeywords = []string{"fhd", "1080p", "全高清"}
	hdKeywords  = []string{"hd", "高清"}
)

// Quality derives the resolution tier from a channel's display name.
// Case-insensitive keyword match, first matching tier wins, default SD.
func Quality(name string) types.Quality {
	lower := strings.ToLower(name)

	for _, kw := range fhdKeywords {
		if strings.Contains(lower, kw) {
			return types.QualityFHD
		}
	}
	for _, kw := range hdKeywords {
		if strings.Contains(lower, kw) {
			return types.QualityHD
		}
	}
	return types.QualitySD
}

// Adaptive reports whether the format is served through a manifest the
// adaptive-streaming engine can drive. FLV and RTMP streams always take
// the native playback path.
func Adaptive(format types.StreamFormat) bool {
	return format == types.FormatHLS || format == types.FormatDASH
}
