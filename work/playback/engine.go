package playback

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/grafov/m3u8"

	"moontv/work/client"
	"moontv/work/logger"
)

// EventKind identifies what an engine is reporting.
type EventKind string

const (
	// EventManifestParsed fires when an adaptive manifest decoded
	// successfully. The event carries the detected quality label.
	EventManifestParsed EventKind = "manifest_parsed"
	// EventLoadedData fires when the stream produced playable data.
	EventLoadedData EventKind = "loaded_data"
	// EventFatalError fires when the adaptive engine cannot recover.
	EventFatalError EventKind = "fatal_error"
	// EventNativeError fires when native playback failed.
	EventNativeError EventKind = "native_error"
)

// Event is what engines emit back to the playback controller.
type Event struct {
	Kind         EventKind
	QualityLabel string
	Err          error
}

// Engine drives one playback attempt against one stream URL. Load
// blocks until the attempt settles and reports progress through emit.
// Destroy must be safe to call more than once and after Load returns.
type Engine interface {
	Load(ctx context.Context, url string, emit func(Event))
	Destroy()
}

// EngineFactory builds a fresh engine per attach. Engines are never
// reused across sources.
type EngineFactory func() Engine

// HLSEngine validates an adaptive stream by decoding its manifest. A
// master playlist yields a quality label from the best variant's
// resolution; a media playlist counts as playable as-is.
type HLSEngine struct {
	client    *client.HeaderSettingClient
	destroyed atomic.Bool
}

// NewHLSEngineFactory returns a factory producing HLS engines bound to
// the shared HTTP client.
func NewHLSEngineFactory(httpClient *client.HeaderSettingClient) EngineFactory {
	return func() Engine {
		return &HLSEngine{client: httpClient}
	}
}

func (e *HLSEngine) Load(ctx context.Context, url string, emit func(Event)) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		emit(Event{Kind: EventFatalError, Err: err})
		return
	}

	resp, err := e.client.Do(req)
	if err != nil {
		emit(Event{Kind: EventFatalError, Err: err})
		return
	}
	defer resp.Body.Close()

	if e.destroyed.Load() {
		return
	}
	if resp.StatusCode != http.StatusOK {
		emit(Event{Kind: EventFatalError, Err: fmt.Errorf("manifest fetch: HTTP %d", resp.StatusCode)})
		return
	}

	playlist, listType, err := m3u8.DecodeFrom(bufio.NewReader(resp.Body), true)
	if err != nil {
		emit(Event{Kind: EventFatalError, Err: fmt.Errorf("manifest decode: %w", err)})
		return
	}
	if e.destroyed.Load() {
		return
	}

	label := ""
	if listType == m3u8.MASTER {
		label = bestVariantLabel(playlist.(*m3u8.MasterPlaylist))
	}
	emit(Event{Kind: EventManifestParsed, QualityLabel: label})
	emit(Event{Kind: EventLoadedData, QualityLabel: label})
}

func (e *HLSEngine) Destroy() {
	if e.destroyed.CompareAndSwap(false, true) {
		logger.Debug("{playback - Destroy} hls engine released")
	}
}

// bestVariantLabel picks the highest-bandwidth variant and maps its
// resolution height onto a quality tier label.
func bestVariantLabel(master *m3u8.MasterPlaylist) string {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	if best == nil || best.Resolution == "" {
		return ""
	}
	return resolutionLabel(best.Resolution)
}

// resolutionLabel maps a WxH resolution string to SD/HD/FHD.
func resolutionLabel(resolution string) string {
	parts := strings.SplitN(resolution, "x", 2)
	if len(parts) != 2 {
		return ""
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return ""
	}
	switch {
	case height >= 1080:
		return "FHD"
	case height >= 720:
		return "HD"
	default:
		return "SD"
	}
}

// NativeEngine is the fallback path when no adaptive engine applies or
// the adaptive engine hit a fatal error: it probes the URL directly
// and reports whether bytes came back.
type NativeEngine struct {
	client    *client.HeaderSettingClient
	destroyed atomic.Bool
}

// NewNativeEngineFactory returns a factory producing native probe
// engines bound to the shared HTTP client.
func NewNativeEngineFactory(httpClient *client.HeaderSettingClient) EngineFactory {
	return func() Engine {
		return &NativeEngine{client: httpClient}
	}
}

func (e *NativeEngine) Load(ctx context.Context, url string, emit func(Event)) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		emit(Event{Kind: EventNativeError, Err: err})
		return
	}

	resp, err := e.client.Do(req)
	if err != nil {
		emit(Event{Kind: EventNativeError, Err: err})
		return
	}
	defer resp.Body.Close()

	if e.destroyed.Load() {
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		emit(Event{Kind: EventNativeError, Err: fmt.Errorf("native probe: HTTP %d", resp.StatusCode)})
		return
	}

	// One successful read is enough to call the stream playable.
	buf := make([]byte, 1)
	if _, err := resp.Body.Read(buf); err != nil {
		emit(Event{Kind: EventNativeError, Err: fmt.Errorf("native probe: %w", err)})
		return
	}
	emit(Event{Kind: EventLoadedData})
}

func (e *NativeEngine) Destroy() {
	e.destroyed.CompareAndSwap(false, true)
}
