package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// scriptedEngine emits a fixed event sequence when loaded and records
// lifecycle calls on the shared recorder.
type scriptedEngine struct {
	events   []Event
	rec      *recorder
	label    string
	captured *capturedEmit
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type capturedEmit struct {
	mu   sync.Mutex
	emit func(Event)
}

func (c *capturedEmit) set(emit func(Event)) {
	c.mu.Lock()
	c.emit = emit
	c.mu.Unlock()
}

func (c *capturedEmit) fire(ev Event) {
	c.mu.Lock()
	emit := c.emit
	c.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

func (e *scriptedEngine) Load(_ context.Context, url string, emit func(Event)) {
	if e.rec != nil {
		e.rec.add("load:" + e.label + ":" + url)
	}
	if e.captured != nil {
		e.captured.set(emit)
	}
	for _, ev := range e.events {
		emit(ev)
	}
}

func (e *scriptedEngine) Destroy() {
	if e.rec != nil {
		e.rec.add("destroy:" + e.label)
	}
}

func scriptedFactory(label string, rec *recorder, events ...Event) EngineFactory {
	return func() Engine {
		return &scriptedEngine{events: events, rec: rec, label: label}
	}
}

func TestRetryWrapsAroundSourceList(t *testing.T) {
	urls := []string{
		"http://a.example.com/live.flv",
		"http://b.example.com/live.flv",
		"http://c.example.com/live.flv",
	}
	failing := scriptedFactory("native", nil, Event{Kind: EventNativeError, Err: errors.New("down")})
	c := NewController(NewAdapter(nil, failing), "https", urls)

	c.Play(context.Background())
	if got := c.Snapshot(); got.State != StateError || got.SourceIndex != 0 {
		t.Fatalf("after play: state=%s index=%d", got.State, got.SourceIndex)
	}

	wantIndices := []int{1, 2, 0, 1}
	for _, want := range wantIndices {
		c.Retry(context.Background())
		snap := c.Snapshot()
		if snap.SourceIndex != want {
			t.Errorf("retry: index = %d, want %d", snap.SourceIndex, want)
		}
		if snap.State != StateError {
			t.Errorf("retry: state = %s, want %s", snap.State, StateError)
		}
	}
}

func TestPlayConnectsOnLoadedData(t *testing.T) {
	ok := scriptedFactory("native", nil, Event{Kind: EventLoadedData})
	c := NewController(NewAdapter(nil, ok), "https", []string{"http://a.example.com/live.flv"})

	c.Play(context.Background())

	snap := c.Snapshot()
	if snap.State != StateConnected {
		t.Errorf("state = %s, want %s", snap.State, StateConnected)
	}
	if !snap.Native {
		t.Error("expected native path for flv source")
	}
}

func TestEngineFatalFallsBackToNative(t *testing.T) {
	rec := &recorder{}
	adaptive := scriptedFactory("hls", rec, Event{Kind: EventFatalError, Err: errors.New("demux failed")})
	native := scriptedFactory("native", rec, Event{Kind: EventLoadedData})
	c := NewController(NewAdapter(adaptive, native), "https", []string{"https://a.example.com/live.m3u8"})

	c.Play(context.Background())

	snap := c.Snapshot()
	if snap.State != StateConnected {
		t.Fatalf("state = %s, want %s", snap.State, StateConnected)
	}
	if !snap.Native {
		t.Error("expected native flag after engine fallback")
	}

	destroyAt, loadAt := -1, -1
	for i, call := range rec.snapshot() {
		switch call {
		case "destroy:hls":
			destroyAt = i
		case "load:native:https://a.example.com/live.m3u8":
			loadAt = i
		}
	}
	if destroyAt == -1 {
		t.Fatal("adaptive engine never destroyed")
	}
	if loadAt == -1 {
		t.Fatal("native engine never loaded")
	}
	if destroyAt > loadAt {
		t.Error("native load happened before adaptive engine was destroyed")
	}
}

func TestStaleEventsAreDiscarded(t *testing.T) {
	captured := &capturedEmit{}
	slow := func() Engine {
		return &scriptedEngine{captured: captured}
	}
	c := NewController(NewAdapter(nil, slow), "https", []string{"http://a.example.com/live.flv"})

	c.Play(context.Background())
	c.Close()

	// A callback from the torn-down attempt arrives late.
	captured.fire(Event{Kind: EventLoadedData})

	if snap := c.Snapshot(); snap.State != StateIdle {
		t.Errorf("stale event changed state to %s", snap.State)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	rec := &recorder{}
	ok := scriptedFactory("native", rec, Event{Kind: EventLoadedData})
	c := NewController(NewAdapter(nil, ok), "https", []string{"http://a.example.com/live.flv"})

	c.Play(context.Background())
	c.Close()
	c.Close()

	if snap := c.Snapshot(); snap.State != StateIdle {
		t.Errorf("state = %s, want %s", snap.State, StateIdle)
	}
}

func TestSelectSourceJumpsDirectly(t *testing.T) {
	ok := scriptedFactory("native", nil, Event{Kind: EventLoadedData})
	urls := []string{
		"http://a.example.com/live.flv",
		"http://b.example.com/live.flv",
		"http://c.example.com/live.flv",
	}
	c := NewController(NewAdapter(nil, ok), "https", urls)

	c.SelectSource(context.Background(), 2)
	if snap := c.Snapshot(); snap.SourceIndex != 2 || snap.State != StateConnected {
		t.Errorf("index=%d state=%s", snap.SourceIndex, snap.State)
	}

	// Out of range selections are ignored.
	c.SelectSource(context.Background(), 9)
	if snap := c.Snapshot(); snap.SourceIndex != 2 {
		t.Errorf("out of range selection moved index to %d", snap.SourceIndex)
	}
}

func TestPlayWithNoSourcesIsError(t *testing.T) {
	ok := scriptedFactory("native", nil, Event{Kind: EventLoadedData})
	c := NewController(NewAdapter(nil, ok), "https", nil)

	c.Play(context.Background())

	snap := c.Snapshot()
	if snap.State != StateError {
		t.Errorf("state = %s, want %s", snap.State, StateError)
	}
	if snap.LastError == "" {
		t.Error("expected a last error")
	}
}

func TestSnapshotRewritesPlayURL(t *testing.T) {
	ok := scriptedFactory("native", nil, Event{Kind: EventLoadedData})
	c := NewController(NewAdapter(nil, ok), "https", []string{"http://a.example.com/live.flv"})

	snap := c.Snapshot()
	if snap.PlayURL != "/proxy/plain/a.example.com/live.flv" {
		t.Errorf("PlayURL = %q", snap.PlayURL)
	}
	if snap.URL != "http://a.example.com/live.flv" {
		t.Errorf("URL = %q", snap.URL)
	}
}

func TestManagerLifecycle(t *testing.T) {
	ok := scriptedFactory("native", nil, Event{Kind: EventLoadedData})
	m := NewManager()

	ctrl := NewController(NewAdapter(nil, ok), "https", []string{"http://a.example.com/live.flv"})
	s := m.Create("sports-cctv5", ctrl)
	if s.ID == "" {
		t.Fatal("empty session id")
	}
	if got, present := m.Get(s.ID); !present || got != s {
		t.Fatal("session not retrievable")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d", m.Len())
	}
	if !m.Delete(s.ID) {
		t.Error("delete reported missing session")
	}
	if m.Delete(s.ID) {
		t.Error("second delete reported success")
	}
	if m.Len() != 0 {
		t.Errorf("Len after delete = %d", m.Len())
	}
}
