package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sofatutor/hlsproxy/internal/rewriter"
)

// apiError is the {"error": "..."} JSON body shape the teacher's
// circuitbreaker/retry middlewares write on failure.
type apiError struct {
	Error string `json:"error"`
}

// writeError classifies err per spec.md §7 and writes the matching status
// and body. A *rewriter.BadRequestError is a 400; a *rewriter.ForbiddenError
// (origin allowlist rejection) is a 403; a *rewriter.UpstreamError is a 500
// whose message embeds the upstream status; everything else
// (TransportFailure surfaced after the pool's fallback also failed) is a
// generic 500.
func writeError(w http.ResponseWriter, err error) {
	var bad *rewriter.BadRequestError
	var forbidden *rewriter.ForbiddenError
	var upstream *rewriter.UpstreamError

	switch {
	case errors.As(err, &bad):
		writeJSONError(w, http.StatusBadRequest, bad.Error())
	case errors.As(err, &forbidden):
		writeJSONError(w, http.StatusForbidden, forbidden.Error())
	case errors.As(err, &upstream):
		writeJSONError(w, http.StatusInternalServerError, upstream.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Error: message})
}
