package playback

import (
	"context"
	"sync"

	"moontv/work/detect"
	"moontv/work/logger"
)

// Adapter owns at most one live engine and decides which kind to
// attach for a given URL: adaptive formats get the adaptive engine
// when one is available, everything else gets the native probe.
// Detach is idempotent so retry paths can call it unconditionally.
type Adapter struct {
	adaptiveFactory EngineFactory
	nativeFactory   EngineFactory

	mu     sync.Mutex
	engine Engine
}

// NewAdapter wires the two engine factories. adaptiveFactory may be
// nil, in which case every attach uses the native path.
func NewAdapter(adaptiveFactory, nativeFactory EngineFactory) *Adapter {
	return &Adapter{
		adaptiveFactory: adaptiveFactory,
		nativeFactory:   nativeFactory,
	}
}

// Attach tears down any live engine, picks one for the URL's format,
// and runs its load. emit receives the engine's events; native
// reports whether the native path was chosen.
func (a *Adapter) Attach(ctx context.Context, url string, emit func(Event)) (native bool) {
	a.Detach()

	format := detect.StreamFormat(url)
	useNative := a.adaptiveFactory == nil || !detect.Adaptive(format)

	a.mu.Lock()
	if useNative {
		a.engine = a.nativeFactory()
	} else {
		a.engine = a.adaptiveFactory()
	}
	engine := a.engine
	a.mu.Unlock()

	logger.Debug("{playback - Attach} format=%s native=%v", format, useNative)
	engine.Load(ctx, url, emit)
	return useNative
}

// AttachNative forces the native path regardless of format. Used after
// the adaptive engine hit a fatal error on the same URL.
func (a *Adapter) AttachNative(ctx context.Context, url string, emit func(Event)) {
	a.Detach()

	a.mu.Lock()
	a.engine = a.nativeFactory()
	engine := a.engine
	a.mu.Unlock()

	engine.Load(ctx, url, emit)
}

// Detach destroys the live engine, if any. Safe to call repeatedly
// and with no engine attached.
func (a *Adapter) Detach() {
	a.mu.Lock()
	engine := a.engine
	a.engine = nil
	a.mu.Unlock()

	if engine != nil {
		engine.Destroy()
	}
}
