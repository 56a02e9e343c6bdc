package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sofatutor/hlsproxy/internal/config"
	"github.com/sofatutor/hlsproxy/internal/headerpolicy"
	"github.com/sofatutor/hlsproxy/internal/rewriter"
)

// handleTSProxy implements GET /ts-proxy (spec.md §6): serve a segment or
// key from cache if live, otherwise fetch it through the connection pool,
// stream it to the client, and opportunistically cache it.
func (s *Server) handleTSProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeCORSPreflight(w)
		return
	}

	rawURL, err := rewriter.RequireURL(r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, err)
		return
	}
	clientHeaders, err := rewriter.ParseHeaders(r.URL.Query().Get("headers"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.checkOriginAllowed(rawURL); err != nil {
		writeError(w, err)
		return
	}

	if entry, ok := s.cache.Get(rawURL); ok {
		for k, v := range entry.Header {
			w.Header().Set(k, v)
		}
		w.Header().Set("X-Proxy-Cache", "hit")
		status := entry.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write(entry.Bytes)
		return
	}

	outboundHeaders := headerpolicy.BuildOutboundHeaders(clientHeaders, s.cfg.DefaultUserAgent)
	resp, err := s.pool.Request(r.Context(), http.MethodGet, rawURL, outboundHeaders, nil)
	if err != nil {
		writeError(w, fmt.Errorf("segment fetch: %w", err))
		return
	}
	defer resp.BodyStream.Close()

	headerSnapshot := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			w.Header().Set(k, v[0])
			headerSnapshot[k] = v[0]
		}
	}
	w.Header().Set("X-Proxy-Cache", "miss")
	w.WriteHeader(resp.StatusCode)

	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(w, &buf), resp.BodyStream); err != nil {
		s.logger.Warn("segment stream copy failed", zap.String("url", rawURL), zap.Error(err))
		return
	}

	if !config.DisableCacheEnabled() && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.cache.Set(rawURL, resp.StatusCode, buf.Bytes(), headerSnapshot)
	}
}
