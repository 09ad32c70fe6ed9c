package liveness

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/ratelimit"

	"moontv/work/client"
	"moontv/work/logger"
	"moontv/work/metrics"
	"moontv/work/types"
	"moontv/work/utils"
)

// Checker probes stream URLs for liveness. Probes run on a bounded
// worker pool and are rate limited so a full catalog sweep cannot
// hammer upstream origins. A probe that errors or times out reports
// dead; Check itself never returns an error.
type Checker struct {
	client    *client.HeaderSettingClient
	pool      *ants.Pool
	limiter   ratelimit.Limiter
	timeout   time.Duration
	obfuscate bool
}

// NewChecker builds a checker with workers goroutines, throttled to
// probesPerSecond.
func NewChecker(httpClient *client.HeaderSettingClient, workers, probesPerSecond int, timeout time.Duration, obfuscate bool) (*Checker, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Checker{
		client:    httpClient,
		pool:      pool,
		limiter:   ratelimit.New(probesPerSecond),
		timeout:   timeout,
		obfuscate: obfuscate,
	}, nil
}

// Release shuts the worker pool down.
func (c *Checker) Release() {
	c.pool.Release()
}

// Check probes a single URL. True means the origin answered with a
// success status inside the timeout.
func (c *Checker) Check(ctx context.Context, url string) bool {
	c.limiter.Take()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.LivenessChecks.WithLabelValues("dead").Inc()
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug("{liveness - Check} probe failed for %s: %v", c.logURL(url), err)
		metrics.LivenessChecks.WithLabelValues("dead").Inc()
		return false
	}
	resp.Body.Close()

	alive := resp.StatusCode >= 200 && resp.StatusCode < 400
	if alive {
		metrics.LivenessChecks.WithLabelValues("alive").Inc()
	} else {
		metrics.LivenessChecks.WithLabelValues("dead").Inc()
	}
	return alive
}

// CheckChannel probes a channel's URLs in order and reports whether
// any of them is alive.
func (c *Checker) CheckChannel(ctx context.Context, ch *types.Channel) bool {
	for _, u := range ch.URLs {
		if c.Check(ctx, u) {
			return true
		}
	}
	return false
}

// Sweep probes every channel in the snapshot on the worker pool and
// updates each channel's Active flag in place. Blocks until the sweep
// completes or ctx is cancelled.
func (c *Checker) Sweep(ctx context.Context, snapshot *types.CatalogSnapshot) {
	start := time.Now()
	var wg sync.WaitGroup

sweep:
	for _, cat := range snapshot.Categories {
		for _, ch := range cat.Channels {
			if ctx.Err() != nil {
				logger.Info("{liveness - Sweep} cancelled, stopping submissions")
				break sweep
			}
			ch := ch
			wg.Add(1)
			err := c.pool.Submit(func() {
				defer wg.Done()
				ch.Active.Store(c.CheckChannel(ctx, ch))
			})
			if err != nil {
				wg.Done()
				logger.Warn("{liveness - Sweep} pool submit failed: %v", err)
			}
		}
	}
	wg.Wait()

	logger.Info("{liveness - Sweep} swept %d channels in %s",
		snapshot.ChannelCount(), time.Since(start).Round(time.Millisecond))
}

func (c *Checker) logURL(raw string) string {
	if c.obfuscate {
		return utils.ObfuscateURL(raw)
	}
	return raw
}
