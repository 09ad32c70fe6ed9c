package liveness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"moontv/work/client"
	"moontv/work/config"
	"moontv/work/types"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	cfg := &config.Config{UserAgent: "moontv-test/1.0"}
	c, err := NewChecker(client.New(cfg), 4, 100, 2*time.Second, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Release)
	return c
}

func TestCheckAliveAndDead(t *testing.T) {
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer alive.Close()
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()

	c := newTestChecker(t)
	if !c.Check(context.Background(), alive.URL) {
		t.Error("expected alive origin to report alive")
	}
	if c.Check(context.Background(), dead.URL) {
		t.Error("expected 503 origin to report dead")
	}
	if c.Check(context.Background(), "http://127.0.0.1:1/") {
		t.Error("expected unreachable origin to report dead")
	}
}

func TestCheckTimeoutReportsDead(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	cfg := &config.Config{UserAgent: "moontv-test/1.0"}
	c, err := NewChecker(client.New(cfg), 2, 100, 100*time.Millisecond, false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Release()

	if c.Check(context.Background(), slow.URL) {
		t.Error("expected timed-out probe to report dead")
	}
}

func TestCheckChannelFallsThroughURLs(t *testing.T) {
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer alive.Close()

	c := newTestChecker(t)
	ch := &types.Channel{
		Name: "CCTV5",
		URLs: []string{"http://127.0.0.1:1/", alive.URL},
	}
	if !c.CheckChannel(context.Background(), ch) {
		t.Error("expected channel with one live URL to report alive")
	}
}

func TestSweepUpdatesActiveFlags(t *testing.T) {
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer alive.Close()

	snap := &types.CatalogSnapshot{
		Categories: []*types.Category{{
			ID:   "sports",
			Name: "体育",
			Channels: []*types.Channel{
				{Name: "live", URLs: []string{alive.URL}},
				{Name: "dead", URLs: []string{"http://127.0.0.1:1/"}},
			},
		}},
		LoadedAt: time.Now(),
	}

	c := newTestChecker(t)
	c.Sweep(context.Background(), snap)

	channels := snap.Categories[0].Channels
	if !channels[0].Active.Load() {
		t.Error("live channel marked inactive")
	}
	if channels[1].Active.Load() {
		t.Error("dead channel marked active")
	}
}

// Sweeps run against the published snapshot while API handlers encode it,
// so flipping Active must be safe under the race detector.
func TestSweepConcurrentWithSnapshotEncoding(t *testing.T) {
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer alive.Close()

	var channels []*types.Channel
	for i := 0; i < 32; i++ {
		channels = append(channels, &types.Channel{
			ID:   "ch-" + string(rune('a'+i%26)),
			Name: "channel",
			URLs: []string{alive.URL},
		})
	}
	snap := &types.CatalogSnapshot{
		Categories: []*types.Category{{ID: "sports", Name: "体育", Channels: channels}},
		LoadedAt:   time.Now(),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := json.Marshal(snap.Categories); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	c := newTestChecker(t)
	c.Sweep(context.Background(), snap)
	<-done
}

func TestSweepStopsWhenContextCancelled(t *testing.T) {
	snap := &types.CatalogSnapshot{
		Categories: []*types.Category{{
			ID:   "sports",
			Name: "体育",
			Channels: []*types.Channel{
				{Name: "one", URLs: []string{"http://127.0.0.1:1/"}},
				{Name: "two", URLs: []string{"http://127.0.0.1:1/"}},
			},
		}},
		LoadedAt: time.Now(),
	}
	for _, ch := range snap.Categories[0].Channels {
		ch.Active.Store(true)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestChecker(t)
	c.Sweep(ctx, snap)

	for _, ch := range snap.Categories[0].Channels {
		if !ch.Active.Load() {
			t.Errorf("channel %s probed after cancellation", ch.Name)
		}
	}
}
