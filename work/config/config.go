package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Config holds all application configuration for the catalog and
// playback server: where the catalog source-of-record lives, cache and
// timeout bounds, and HTTP behavior.
type Config struct {
	ListenAddr      string        `json:"listenAddr"`      // Address the HTTP server binds to
	BaseURL         string        `json:"baseURL"`         // Public base URL, used in generated playlist links
	PageScheme      string        `json:"pageScheme"`      // Scheme the player page is served over ("http" or "https")
	SourceURL       string        `json:"sourceURL"`       // Catalog source-of-record: file path or http(s) URL
	CacheTTL        time.Duration `json:"cacheTTL"`        // Catalog snapshot lifetime before a reload is attempted
	RenderCacheTTL  time.Duration `json:"renderCacheTTL"`  // Lifetime of rendered playlist/search entries
	UpstreamTimeout time.Duration `json:"upstreamTimeout"` // Bound on proxy gateway upstream fetches
	LivenessTimeout time.Duration `json:"livenessTimeout"` // Bound on a single URL liveness probe
	SweepInterval   time.Duration `json:"sweepInterval"`   // How often the background watcher sweeps channel liveness
	WorkerThreads   int           `json:"workerThreads"`   // Pool size for catalog-wide liveness sweeps
	ProbesPerSecond int           `json:"probesPerSecond"` // Rate limit for liveness probes during a sweep
	IncludePattern  string        `json:"includePattern"`  // Regex a channel name must match to enter the catalog (empty = all)
	ExcludePattern  string        `json:"excludePattern"`  // Regex that removes matching channel names from the catalog
	UserAgent       string        `json:"userAgent"`       // User-Agent for outbound requests
	ObfuscateURLs   bool          `json:"obfuscateUrls"`   // Mask stream URLs in log output
	LogLevel        string        `json:"logLevel"`        // DEBUG, INFO, WARN or ERROR
}

// ConfigFile mirrors Config for JSON unmarshaling, holding durations as
// strings (e.g. "5m") that are parsed into time.Duration values.
type ConfigFile struct {
	ListenAddr      string `json:"listenAddr"`
	BaseURL         string `json:"baseURL"`
	PageScheme      string `json:"pageScheme"`
	SourceURL       string `json:"sourceURL"`
	CacheTTL        string `json:"cacheTTL"`
	RenderCacheTTL  string `json:"renderCacheTTL"`
	UpstreamTimeout string `json:"upstreamTimeout"`
	LivenessTimeout string `json:"livenessTimeout"`
	SweepInterval   string `json:"sweepInterval"`
	WorkerThreads   int    `json:"workerThreads"`
	ProbesPerSecond int    `json:"probesPerSecond"`
	IncludePattern  string `json:"includePattern"`
	ExcludePattern  string `json:"excludePattern"`
	UserAgent       string `json:"userAgent"`
	ObfuscateURLs   bool   `json:"obfuscateUrls"`
	LogLevel        string `json:"logLevel"`
}

var (
	configCache *Config
	configMutex sync.RWMutex
)

// DefaultPath is where LoadConfig looks for the config file unless a
// path is supplied explicitly.
const DefaultPath = "/settings/config.json"

// LoadConfig loads the configuration from file or returns the cached
// instance. Uses double-checked locking so concurrent callers never
// trigger redundant reloads. A missing or invalid file falls back to
// defaults rather than failing startup.
func LoadConfig(path string) *Config {
	configMutex.RLock()
	if configCache != nil {
		defer configMutex.RUnlock()
		return configCache
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	if configCache != nil {
		return configCache
	}

	if path == "" {
		path = DefaultPath
	}

	config, err := loadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v, using defaults\n", err)
		config = getDefaultConfig()
	}

	validateAndSetDefaults(config)
	configCache = config
	return config
}

// ClearConfigCache resets the cached configuration, forcing a reload on
// the next LoadConfig call.
func ClearConfigCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCache = nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cf ConfigFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return convertFromFile(&cf)
}

func convertFromFile(cf *ConfigFile) (*Config, error) {
	config := &Config{
		ListenAddr:      cf.ListenAddr,
		BaseURL:         cf.BaseURL,
		PageScheme:      cf.PageScheme,
		SourceURL:       cf.SourceURL,
		WorkerThreads:   cf.WorkerThreads,
		ProbesPerSecond: cf.ProbesPerSecond,
		IncludePattern:  cf.IncludePattern,
		ExcludePattern:  cf.ExcludePattern,
		UserAgent:       cf.UserAgent,
		ObfuscateURLs:   cf.ObfuscateURLs,
		LogLevel:        cf.LogLevel,
	}

	var err error
	if config.CacheTTL, err = parseDuration(cf.CacheTTL); err != nil {
		return nil, fmt.Errorf("invalid cacheTTL: %w", err)
	}
	if config.RenderCacheTTL, err = parseDuration(cf.RenderCacheTTL); err != nil {
		return nil, fmt.Errorf("invalid renderCacheTTL: %w", err)
	}
	if config.UpstreamTimeout, err = parseDuration(cf.UpstreamTimeout); err != nil {
		return nil, fmt.Errorf("invalid upstreamTimeout: %w", err)
	}
	if config.LivenessTimeout, err = parseDuration(cf.LivenessTimeout); err != nil {
		return nil, fmt.Errorf("invalid livenessTimeout: %w", err)
	}
	if config.SweepInterval, err = parseDuration(cf.SweepInterval); err != nil {
		return nil, fmt.Errorf("invalid sweepInterval: %w", err)
	}

	return config, nil
}

// parseDuration treats an empty string as zero so omitted fields pick up
// defaults during validation instead of erroring.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func getDefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		BaseURL:         "http://localhost:8080",
		PageScheme:      "http",
		SourceURL:       "/settings/catalog.txt",
		CacheTTL:        5 * time.Minute,
		RenderCacheTTL:  time.Minute,
		UpstreamTimeout: 30 * time.Second,
		LivenessTimeout: 5 * time.Second,
		SweepInterval:   10 * time.Minute,
		WorkerThreads:   8,
		ProbesPerSecond: 10,
		UserAgent:       "VLC/3.0.18 LibVLC/3.0.18",
		ObfuscateURLs:   false,
		LogLevel:        "INFO",
	}
}

func validateAndSetDefaults(config *Config) {
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080"
	}
	if config.PageScheme != "http" && config.PageScheme != "https" {
		config.PageScheme = "http"
	}
	if config.SourceURL == "" {
		config.SourceURL = "/settings/catalog.txt"
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.RenderCacheTTL <= 0 {
		config.RenderCacheTTL = time.Minute
	}
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 30 * time.Second
	}
	if config.LivenessTimeout <= 0 {
		config.LivenessTimeout = 5 * time.Second
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 10 * time.Minute
	}
	if config.WorkerThreads <= 0 {
		config.WorkerThreads = 8
	}
	if config.ProbesPerSecond <= 0 {
		config.ProbesPerSecond = 10
	}
	if config.UserAgent == "" {
		config.UserAgent = "VLC/3.0.18 LibVLC/3.0.18"
	}
	if config.LogLevel == "" {
		config.LogLevel = "INFO"
	}
}

// CreateExampleConfig writes a commented example configuration to path.
func CreateExampleConfig(path string) error {
	example := ConfigFile{
		ListenAddr:      ":8080",
		BaseURL:         "http://localhost:8080",
		PageScheme:      "http",
		SourceURL:       "http://example.com/catalog.txt",
		CacheTTL:        "5m",
		RenderCacheTTL:  "1m",
		UpstreamTimeout: "30s",
		LivenessTimeout: "5s",
		SweepInterval:   "10m",
		WorkerThreads:   8,
		ProbesPerSecond: 10,
		ExcludePattern:  "(?i)测试|test",
		UserAgent:       "VLC/3.0.18 LibVLC/3.0.18",
		ObfuscateURLs:   true,
		LogLevel:        "INFO",
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
