package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"moontv/work/logger"
	"moontv/work/metrics"
	"moontv/work/proxy"
)

// State is the playback session lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateError      State = "error"
)

// ErrNoSources is reported when a session has no stream URLs to try.
var ErrNoSources = errors.New("no stream sources")

// Controller runs the source fallback state machine for one playback
// session. Each attach bumps a generation counter; engine events
// carrying a stale generation are discarded, so a slow callback from a
// torn-down engine can never corrupt the state of its successor.
//
// Retry advances through the source list with wrap-around: after the
// last source it returns to the first. A channel whose sources are all
// down cycles rather than parking in a terminal state, which keeps a
// recovering upstream reachable without user action.
type Controller struct {
	adapter    *Adapter
	pageScheme string

	generation atomic.Uint64

	mu      sync.Mutex
	urls    []string
	index   int
	state   State
	quality string
	native  bool
	lastErr error
}

// NewController builds an idle controller over the given source URLs.
func NewController(adapter *Adapter, pageScheme string, urls []string) *Controller {
	return &Controller{
		adapter:    adapter,
		pageScheme: pageScheme,
		urls:       urls,
		state:      StateIdle,
	}
}

// Play attaches an engine to the current source. Any previous attempt
// is invalidated first: its engine is destroyed and its remaining
// events are discarded. Blocks until the attempt settles.
func (c *Controller) Play(ctx context.Context) {
	c.mu.Lock()
	if len(c.urls) == 0 {
		c.setStateLocked(StateError)
		c.lastErr = ErrNoSources
		c.mu.Unlock()
		return
	}
	gen := c.generation.Add(1)
	c.setStateLocked(StateConnecting)
	c.quality = ""
	c.native = false
	c.lastErr = nil
	url := c.urls[c.index]
	c.mu.Unlock()

	var fatalErr, nativeErr error
	emit := func(ev Event) {
		if c.generation.Load() != gen {
			logger.Debug("{playback - Play} stale event %s discarded", ev.Kind)
			return
		}
		switch ev.Kind {
		case EventManifestParsed:
			c.mu.Lock()
			c.quality = ev.QualityLabel
			c.mu.Unlock()
		case EventLoadedData:
			c.mu.Lock()
			if ev.QualityLabel != "" {
				c.quality = ev.QualityLabel
			}
			c.setStateLocked(StateConnected)
			c.mu.Unlock()
		case EventFatalError:
			fatalErr = ev.Err
		case EventNativeError:
			nativeErr = ev.Err
		}
	}

	native := c.adapter.Attach(ctx, url, emit)
	if c.generation.Load() != gen {
		return
	}

	if fatalErr != nil && !native {
		// Adaptive engine gave up; same source, native path.
		logger.Info("{playback - Play} engine failed, falling back to native: %v", fatalErr)
		metrics.PlaybackFallbacks.WithLabelValues("native").Inc()
		c.mu.Lock()
		c.native = true
		c.mu.Unlock()
		c.adapter.AttachNative(ctx, url, emit)
		if c.generation.Load() != gen {
			return
		}
	} else if native {
		c.mu.Lock()
		c.native = true
		c.mu.Unlock()
	}

	if nativeErr != nil {
		c.mu.Lock()
		c.setStateLocked(StateError)
		c.lastErr = nativeErr
		c.mu.Unlock()
	}
}

// Retry advances to the next source, wrapping past the end of the
// list, and plays it.
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	if len(c.urls) == 0 {
		c.mu.Unlock()
		return
	}
	c.index = (c.index + 1) % len(c.urls)
	c.mu.Unlock()

	metrics.PlaybackFallbacks.WithLabelValues("next_source").Inc()
	c.Play(ctx)
}

// SelectSource jumps directly to a source index and plays it. Out of
// range indices are ignored.
func (c *Controller) SelectSource(ctx context.Context, index int) {
	c.mu.Lock()
	if index < 0 || index >= len(c.urls) {
		c.mu.Unlock()
		return
	}
	c.index = index
	c.mu.Unlock()

	c.Play(ctx)
}

// Close invalidates the running attempt, destroys the engine, and
// returns the controller to idle. Safe to call repeatedly.
func (c *Controller) Close() {
	c.generation.Add(1)
	c.adapter.Detach()

	c.mu.Lock()
	c.setStateLocked(StateIdle)
	c.quality = ""
	c.native = false
	c.lastErr = nil
	c.mu.Unlock()
}

// Snapshot is a point-in-time view of a session for API responses.
type Snapshot struct {
	State        State  `json:"state"`
	SourceIndex  int    `json:"sourceIndex"`
	SourceCount  int    `json:"sourceCount"`
	URL          string `json:"url"`
	PlayURL      string `json:"playUrl"`
	QualityLabel string `json:"qualityLabel,omitempty"`
	Native       bool   `json:"native"`
	LastError    string `json:"lastError,omitempty"`
}

// Snapshot reports the current state. PlayURL is the tunnel-rewritten
// URL a browser page should load; URL is the raw upstream.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:        c.state,
		SourceIndex:  c.index,
		SourceCount:  len(c.urls),
		QualityLabel: c.quality,
		Native:       c.native,
	}
	if len(c.urls) > 0 {
		snap.URL = c.urls[c.index]
		snap.PlayURL = proxy.Rewrite(c.pageScheme, snap.URL)
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	return snap
}

func (c *Controller) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.state = next
	metrics.PlaybackTransitions.WithLabelValues(string(next)).Inc()
}
