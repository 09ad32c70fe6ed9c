package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moontv/work/cache"
	"moontv/work/catalog"
	"moontv/work/client"
	"moontv/work/config"
	"moontv/work/liveness"
	"moontv/work/logger"
	"moontv/work/middleware"
	"moontv/work/parser"
	"moontv/work/playback"
	"moontv/work/proxy"
	"moontv/work/types"
)

// App bundles the shared collaborators every handler needs.
type App struct {
	Config   *config.Config
	Catalog  *cache.CatalogCache
	Renders  *cache.RenderCache
	Checker  *liveness.Checker
	Sessions *playback.Manager
	Client   *client.HeaderSettingClient

	adaptive playback.EngineFactory
	native   playback.EngineFactory
}

// NewApp wires the handler surface over its collaborators.
func NewApp(cfg *config.Config, cat *cache.CatalogCache, renders *cache.RenderCache,
	checker *liveness.Checker, sessions *playback.Manager, httpClient *client.HeaderSettingClient) *App {
	return &App{
		Config:   cfg,
		Catalog:  cat,
		Renders:  renders,
		Checker:  checker,
		Sessions: sessions,
		Client:   httpClient,
		adaptive: playback.NewHLSEngineFactory(httpClient),
		native:   playback.NewNativeEngineFactory(httpClient),
	}
}

// Router builds the full route table: playlist exports, the catalog
// API, playback sessions, the mixed-content tunnels, and metrics.
// Everything except the tunnels goes through gzip.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()

	gateway := proxy.NewGateway(a.Client, a.Config.UpstreamTimeout, a.Config.ObfuscateURLs)
	r.PathPrefix(proxy.SecureTunnelPrefix).Handler(
		http.StripPrefix(proxy.SecureTunnelPrefix[:len(proxy.SecureTunnelPrefix)-1], gateway.Handler("https", "secure"))).
		Methods(http.MethodGet, http.MethodHead, http.MethodOptions)
	r.PathPrefix(proxy.PlainTunnelPrefix).Handler(
		http.StripPrefix(proxy.PlainTunnelPrefix[:len(proxy.PlainTunnelPrefix)-1], gateway.Handler("http", "plain"))).
		Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	r.HandleFunc("/playlist.m3u", a.HandlePlaylistM3U).Methods(http.MethodGet)
	r.HandleFunc("/playlist.json", a.HandlePlaylistJSON).Methods(http.MethodGet)

	r.HandleFunc("/api/status", a.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/categories", a.HandleCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/categories/{category}/channels", a.HandleChannels).Methods(http.MethodGet)
	r.HandleFunc("/api/search", a.HandleSearch).Methods(http.MethodGet)
	r.HandleFunc("/api/channels/{id}", a.HandleChannel).Methods(http.MethodGet)
	r.HandleFunc("/api/channels/{id}/check", a.HandleChannelCheck).Methods(http.MethodGet)
	r.HandleFunc("/api/refresh", a.HandleRefresh).Methods(http.MethodPost)

	r.HandleFunc("/api/playback", a.HandlePlaybackCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/{id}", a.HandlePlaybackState).Methods(http.MethodGet)
	r.HandleFunc("/api/playback/{id}", a.HandlePlaybackDelete).Methods(http.MethodDelete)
	r.HandleFunc("/api/playback/{id}/retry", a.HandlePlaybackRetry).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/{id}/select", a.HandlePlaybackSelect).Methods(http.MethodPost)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.Use(middleware.Gzip)
	return r
}

// HandlePlaylistM3U serves the whole catalog as an M3U playlist.
func (a *App) HandlePlaylistM3U(w http.ResponseWriter, r *http.Request) {
	const key = "playlist.m3u"
	payload, ok := a.Renders.Get(key)
	if !ok {
		snap := a.Catalog.Get(r.Context())
		payload = []byte(parser.ToM3U(snap.Categories))
		a.Renders.Set(key, payload)
	}
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Write(payload)
}

// HandlePlaylistJSON serves the catalog in the JSON playlist shape.
func (a *App) HandlePlaylistJSON(w http.ResponseWriter, r *http.Request) {
	const key = "playlist.json"
	payload, ok := a.Renders.Get(key)
	if !ok {
		snap := a.Catalog.Get(r.Context())
		payload = []byte(parser.ToJSON(snap.Categories))
		a.Renders.Set(key, payload)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// HandleStatus reports catalog freshness and session load.
func (a *App) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Get(r.Context())
	writeJSON(w, map[string]any{
		"categories": len(snap.Categories),
		"channels":   snap.ChannelCount(),
		"loadedAt":   a.Catalog.LoadedAt(),
		"sessions":   a.Sessions.Len(),
	})
}

func (a *App) HandleCategories(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Get(r.Context())
	writeJSON(w, catalog.Categories(snap))
}

func (a *App) HandleChannels(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Get(r.Context())
	vars := mux.Vars(r)

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 50)
	sortBy := r.URL.Query().Get("sort")
	if sortBy == "" {
		sortBy = catalog.SortDefault
	}

	writeJSON(w, catalog.Channels(snap, vars["category"], page, pageSize, sortBy))
}

func (a *App) HandleSearch(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Get(r.Context())
	results := catalog.Search(snap, r.URL.Query().Get("q"))
	if results == nil {
		results = []*types.Channel{}
	}
	writeJSON(w, results)
}

func (a *App) HandleChannel(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Get(r.Context())
	ch := catalog.ChannelByID(snap, mux.Vars(r)["id"])
	if ch == nil {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}
	writeJSON(w, ch)
}

// HandleChannelCheck runs a liveness probe on demand and updates the
// channel's flag in the snapshot.
func (a *App) HandleChannelCheck(w http.ResponseWriter, r *http.Request) {
	snap := a.Catalog.Get(r.Context())
	ch := catalog.ChannelByID(snap, mux.Vars(r)["id"])
	if ch == nil {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}

	alive := a.Checker.CheckChannel(r.Context(), ch)
	ch.Active.Store(alive)
	writeJSON(w, map[string]any{
		"id":        ch.ID,
		"active":    alive,
		"checkedAt": time.Now().UTC(),
	})
}

// HandleRefresh drops the catalog snapshot and rendered payloads so
// the next read reloads from the source-of-record.
func (a *App) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	a.Catalog.Invalidate()
	a.Renders.InvalidateAll()
	logger.Info("{handlers - HandleRefresh} catalog refresh requested")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "refreshing"})
}

type playbackCreateRequest struct {
	ChannelID string `json:"channelId"`
}

type playbackResponse struct {
	ID        string            `json:"id"`
	ChannelID string            `json:"channelId"`
	Playback  playback.Snapshot `json:"playback"`
}

// HandlePlaybackCreate opens a playback session for a channel and
// runs the first connection attempt before responding.
func (a *App) HandlePlaybackCreate(w http.ResponseWriter, r *http.Request) {
	var req playbackCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		http.Error(w, "channelId required", http.StatusBadRequest)
		return
	}

	snap := a.Catalog.Get(r.Context())
	ch := catalog.ChannelByID(snap, req.ChannelID)
	if ch == nil {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}

	adapter := playback.NewAdapter(a.adaptive, a.native)
	ctrl := playback.NewController(adapter, a.Config.PageScheme, ch.URLs)
	session := a.Sessions.Create(ch.ID, ctrl)

	ctrl.Play(r.Context())
	writeJSON(w, playbackResponse{ID: session.ID, ChannelID: session.ChannelID, Playback: ctrl.Snapshot()})
}

func (a *App) HandlePlaybackState(w http.ResponseWriter, r *http.Request) {
	session, ok := a.Sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, playbackResponse{ID: session.ID, ChannelID: session.ChannelID, Playback: session.Controller.Snapshot()})
}

// HandlePlaybackRetry advances the session to its next source.
func (a *App) HandlePlaybackRetry(w http.ResponseWriter, r *http.Request) {
	session, ok := a.Sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	session.Controller.Retry(r.Context())
	writeJSON(w, playbackResponse{ID: session.ID, ChannelID: session.ChannelID, Playback: session.Controller.Snapshot()})
}

type playbackSelectRequest struct {
	Index int `json:"index"`
}

// HandlePlaybackSelect jumps the session to a specific source index.
func (a *App) HandlePlaybackSelect(w http.ResponseWriter, r *http.Request) {
	session, ok := a.Sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req playbackSelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "index required", http.StatusBadRequest)
		return
	}

	session.Controller.SelectSource(r.Context(), req.Index)
	writeJSON(w, playbackResponse{ID: session.ID, ChannelID: session.ChannelID, Playback: session.Controller.Snapshot()})
}

func (a *App) HandlePlaybackDelete(w http.ResponseWriter, r *http.Request) {
	if !a.Sessions.Delete(mux.Vars(r)["id"]) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("{handlers - writeJSON} encode failed: %v", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
