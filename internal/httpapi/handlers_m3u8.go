package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sofatutor/hlsproxy/internal/config"
	"github.com/sofatutor/hlsproxy/internal/headerpolicy"
	"github.com/sofatutor/hlsproxy/internal/rewriter"
)

// handleM3U8Proxy implements GET /m3u8-proxy (spec.md §6, §4.4): fetch the
// manifest at url=, rewrite every reference through this proxy, and return
// the rewritten playlist. A non-empty segment list triggers a detached
// prefetch (spec.md §4.5).
func (s *Server) handleM3U8Proxy(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeCORSPreflight(w)
		return
	}
	if config.DisableM3U8Enabled() {
		http.Error(w, "M3U8 proxying is disabled", http.StatusNotFound)
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

	manifestURL, perr := url.Parse(rawURL)
	if perr != nil || manifestURL.Scheme == "" || manifestURL.Host == "" {
		writeError(w, &rewriter.BadRequestError{Message: fmt.Sprintf("unresolvable manifest url: %q", rawURL)})
		return
	}
	if err := s.checkOriginAllowed(rawURL); err != nil {
		writeError(w, err)
		return
	}

	outboundHeaders := headerpolicy.BuildOutboundHeaders(clientHeaders, s.cfg.DefaultUserAgent)
	if config.ReqDebugEnabled() {
		s.logger.Debug("outbound request",
			zap.String("method", http.MethodGet), zap.String("url", rawURL), zap.Any("headers", outboundHeaders))
	}

	resp, err := fetchManifestWithRetry(r.Context(), s.pool, rawURL, outboundHeaders, s.logger)
	if err != nil {
		writeError(w, fmt.Errorf("manifest fetch: %w", err))
		return
	}
	defer resp.BodyStream.Close()

	if uerr := rewriter.CheckUpstreamStatus(resp.StatusCode); uerr != nil {
		writeError(w, uerr)
		return
	}

	body, err := io.ReadAll(resp.BodyStream)
	if err != nil {
		writeError(w, fmt.Errorf("manifest read: %w", err))
		return
	}

	decoded, err := rewriter.Decompress(resp.Header.Get("Content-Encoding"), body)
	if err != nil {
		writeError(w, fmt.Errorf("manifest decompress: %w", err))
		return
	}

	result, err := rewriter.Rewrite(string(decoded), manifestURL, clientHeaders, proxyBaseURL(r))
	if err != nil {
		writeError(w, err)
		return
	}

	for k, v := range rewriter.ResponseHeaders() {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Manifest))

	s.orchestrator.Prefetch(result.Segments, headerpolicy.Scrub(outboundHeaders))
}
