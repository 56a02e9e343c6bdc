package rewriter

import "fmt"

// BadRequestError signals a client-supplied input error: missing url,
// invalid headers JSON, or an unresolvable URI (spec.md §7 BadRequest).
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func badRequest(format string, args ...interface{}) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError signals a request naming an origin absent from the
// operator's configured allowlist (internal/config.OriginAllowlist) — a
// supplemented feature, not a spec.md §7 kind, so it gets its own type
// rather than overloading BadRequestError's 400.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// UpstreamError signals a non-2xx response from the origin while fetching
// the manifest (spec.md §7 UpstreamFailure).
type UpstreamError struct {
	StatusCode int
	StatusText string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream fetch failed: %d %s", e.StatusCode, e.StatusText)
}
