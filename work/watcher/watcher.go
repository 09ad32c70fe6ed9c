package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"moontv/work/cache"
	"moontv/work/liveness"
	"moontv/work/logger"
)

// Watcher keeps channel liveness current in the background: on a fixed
// interval it takes the catalog snapshot and runs a full probe sweep
// over it. The sweep updates Active flags in place, so API listings
// reflect upstream health without any request paying for a probe.
type Watcher struct {
	catalog  *cache.CatalogCache
	checker  *liveness.Checker
	interval time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a watcher sweeping every interval.
func New(catalog *cache.CatalogCache, checker *liveness.Checker, interval time.Duration) *Watcher {
	return &Watcher{
		catalog:  catalog,
		checker:  checker,
		interval: interval,
	}
}

// Start launches the sweep loop. The first sweep runs immediately so
// startup does not wait a full interval for liveness data. Calling
// Start on a running watcher is a no-op.
func (w *Watcher) Start(parent context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx)
	logger.Info("{watcher - Start} liveness watcher started, interval %s", w.interval)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (w *Watcher) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	w.cancel()
	<-w.done
	logger.Info("{watcher - Stop} liveness watcher stopped")
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watcher) sweep(ctx context.Context) {
	snap := w.catalog.Get(ctx)
	if snap.ChannelCount() == 0 {
		logger.Debug("{watcher - sweep} empty catalog, skipping")
		return
	}
	w.checker.Sweep(ctx, snap)
}
