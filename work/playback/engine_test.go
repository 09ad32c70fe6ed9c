package playback

import (
	"testing"

	"github.com/grafov/m3u8"
)

func TestResolutionLabel(t *testing.T) {
	tests := []struct {
		resolution string
		want       string
	}{
		{"1920x1080", "FHD"},
		{"2560x1440", "FHD"},
		{"1280x720", "HD"},
		{"854x480", "SD"},
		{"640x360", "SD"},
		{"garbage", ""},
		{"1920x", ""},
	}
	for _, tt := range tests {
		if got := resolutionLabel(tt.resolution); got != tt.want {
			t.Errorf("resolutionLabel(%q) = %q, want %q", tt.resolution, got, tt.want)
		}
	}
}

func TestBestVariantLabelPicksHighestBandwidth(t *testing.T) {
	master := m3u8.NewMasterPlaylist()
	master.Append("low.m3u8", nil, m3u8.VariantParams{Bandwidth: 800000, Resolution: "854x480"})
	master.Append("high.m3u8", nil, m3u8.VariantParams{Bandwidth: 5000000, Resolution: "1920x1080"})
	master.Append("mid.m3u8", nil, m3u8.VariantParams{Bandwidth: 2500000, Resolution: "1280x720"})

	if got := bestVariantLabel(master); got != "FHD" {
		t.Errorf("bestVariantLabel = %q, want FHD", got)
	}
}

func TestBestVariantLabelNoResolution(t *testing.T) {
	master := m3u8.NewMasterPlaylist()
	master.Append("audio.m3u8", nil, m3u8.VariantParams{Bandwidth: 128000})

	if got := bestVariantLabel(master); got != "" {
		t.Errorf("bestVariantLabel = %q, want empty", got)
	}
}
