package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"moontv/work/buffer"
	"moontv/work/client"
	"moontv/work/logger"
	"moontv/work/metrics"
	"moontv/work/utils"
)

// Request headers forwarded to the upstream. Everything else from the
// browser is dropped so cookies and client identifiers never leak
// across the tunnel.
var forwardedRequestHeaders = []string{
	"Range",
	"Accept",
	"User-Agent",
}

// Response headers copied back to the browser. The allow-list keeps
// upstream Set-Cookie and server fingerprinting headers out.
var forwardedResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Cache-Control",
	"Last-Modified",
	"ETag",
}

// Gateway forwards tunnel requests to their upstream origin. One
// instance serves both tunnel prefixes; the scheme is baked into the
// handler at registration time.
type Gateway struct {
	client       *client.HeaderSettingClient
	buffers      *buffer.Pool
	timeout      time.Duration
	obfuscateLog bool
}

// NewGateway builds the forwarding gateway. timeout bounds the whole
// upstream exchange including the body copy.
func NewGateway(httpClient *client.HeaderSettingClient, timeout time.Duration, obfuscateLog bool) *Gateway {
	return &Gateway{
		client:       httpClient,
		buffers:      buffer.NewPool(32 * 1024),
		timeout:      timeout,
		obfuscateLog: obfuscateLog,
	}
}

// Handler returns the http.Handler for one tunnel. scheme is the
// upstream scheme the tunnel restores ("https" for the secure tunnel,
// "http" for the plain one); tunnel names the metrics label.
func (g *Gateway) Handler(scheme, tunnel string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCORS(w.Header())

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		upstream := UpstreamURL(scheme, r.URL.Path, r.URL.RawQuery)
		if upstream == nil {
			metrics.ProxyErrors.WithLabelValues(tunnel, "bad_request").Inc()
			http.Error(w, "missing upstream host", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, r.Method, upstream.String(), nil)
		if err != nil {
			metrics.ProxyErrors.WithLabelValues(tunnel, "bad_request").Inc()
			http.Error(w, "invalid upstream url", http.StatusBadRequest)
			return
		}

		for _, h := range forwardedRequestHeaders {
			if v := r.Header.Get(h); v != "" {
				req.Header.Set(h, v)
			}
		}
		// Some CDNs gate segments on these matching their own origin.
		origin := upstream.Scheme + "://" + upstream.Host
		req.Header.Set("Origin", origin)
		req.Header.Set("Referer", origin+"/")

		resp, err := g.client.Do(req)
		if err != nil {
			metrics.ProxyErrors.WithLabelValues(tunnel, "upstream_unreachable").Inc()
			logger.Warn("{proxy - Handler} upstream unreachable for %s: %v",
				g.logURL(upstream.String()), err)
			http.Error(w, "upstream unreachable", http.StatusInternalServerError)
			return
		}
		defer resp.Body.Close()

		metrics.ProxyRequests.WithLabelValues(tunnel, metrics.StatusClass(resp.StatusCode)).Inc()

		// Upstream failures are forwarded as status only. Origin error
		// pages can be large and are useless to a player, so the body
		// never streams through.
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(resp.StatusCode)
			fmt.Fprintf(w, "upstream status %d\n", resp.StatusCode)
			return
		}

		for _, h := range forwardedResponseHeaders {
			if v := resp.Header.Get(h); v != "" {
				w.Header().Set(h, v)
			}
		}
		w.WriteHeader(resp.StatusCode)

		n := g.copyFlush(w, resp.Body)
		metrics.ProxyBytes.WithLabelValues(tunnel).Add(float64(n))
	})
}

func (g *Gateway) logURL(raw string) string {
	if g.obfuscateLog {
		return utils.ObfuscateURL(raw)
	}
	return raw
}

// writeCORS sets the permissive CORS surface every tunnel response
// carries, success and failure alike.
func writeCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Range, Accept, Content-Type")
	h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
}

// copyFlush streams body to w, flushing after each chunk so segment
// bytes reach the player as they arrive rather than buffering whole
// responses. The scratch buffer comes from the shared pool.
func (g *Gateway) copyFlush(w http.ResponseWriter, body io.Reader) int64 {
	flusher, _ := w.(http.Flusher)
	pooled, buf := g.buffers.Get()
	defer g.buffers.Put(pooled)
	var total int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if flusher != nil {
				flusher.Flush()
			}
			if werr != nil {
				return total
			}
		}
		if err != nil {
			return total
		}
	}
}
