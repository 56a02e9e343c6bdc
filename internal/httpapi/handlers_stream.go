package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sofatutor/hlsproxy/internal/config"
	"github.com/sofatutor/hlsproxy/internal/headerpolicy"
)

// handleStreamPassthrough implements the generic, out-of-core-scope
// POST/GET /stream?destination=<url> pass-through endpoint named in
// spec.md §6, grounded on the teacher's generic proxy path: headers are
// merged defaults-then-caller (spec.md §9) and scrubbed before forwarding.
func (s *Server) handleStreamPassthrough(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeCORSPreflight(w)
		return
	}

	dest := r.URL.Query().Get("destination")
	if dest == "" {
		writeJSONError(w, http.StatusBadRequest, "missing required query parameter: destination")
		return
	}

	clientHeaders := headerpolicy.Headers{}
	for name := range r.Header {
		clientHeaders[name] = r.Header.Get(name)
	}
	outboundHeaders := headerpolicy.Scrub(headerpolicy.BuildOutboundHeaders(clientHeaders, s.cfg.DefaultUserAgent))
	if config.ReqDebugEnabled() {
		s.logger.Debug("outbound request",
			zap.String("method", r.Method), zap.String("url", dest), zap.Any("headers", outboundHeaders))
	}

	resp, err := s.pool.Request(r.Context(), r.Method, dest, outboundHeaders, r.Body)
	if err != nil {
		writeError(w, fmt.Errorf("stream passthrough: %w", err))
		return
	}
	defer resp.BodyStream.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.BodyStream)
}
