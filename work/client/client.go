package client

import (
	"net/http"
	"time"

	"moontv/work/config"
)

// HeaderSettingClient wraps http.Client so every outbound request to a
// catalog source or upstream origin carries the configured User-Agent
// and connection headers. Per-request timeouts come from the caller's
// context; the transport only bounds the header wait so long-lived
// streaming responses are not cut off.
type HeaderSettingClient struct {
	Client *http.Client
	config *config.Config
}

// New builds a HeaderSettingClient with a transport tuned for many
// short catalog fetches plus a few long streaming proxies.
func New(cfg *config.Config) *HeaderSettingClient {
	client := &http.Client{
		Timeout: 0, // streaming responses must not be cut off mid-body
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}

	return &HeaderSettingClient{
		Client: client,
		config: cfg,
	}
}

// Do sets the default headers and executes the request. Headers already
// present on the request are left alone so the proxy gateway can install
// its own Origin/Referer.
func (hsc *HeaderSettingClient) Do(req *http.Request) (*http.Response, error) {
	hsc.setHeaders(req)
	return hsc.Client.Do(req)
}

func (hsc *HeaderSettingClient) setHeaders(req *http.Request) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", hsc.config.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	req.Header.Set("Connection", "keep-alive")
}
