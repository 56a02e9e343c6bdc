package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sofatutor/hlsproxy/internal/pool"
)

// manifestMaxRetries and manifestBaseBackoff bound the supplemented
// retry-on-transient-failure behavior for the manifest fetch, grounded on
// the teacher's RetryMiddleware (internal/proxy/retry.go): a small, fixed
// retry budget with exponential backoff.
const (
	manifestMaxRetries  = 2
	manifestBaseBackoff = 100 * time.Millisecond
)

// fetchManifestWithRetry retries only TransportFailure (the pool, having
// already fallen back to a one-shot fetch, still errored outright) — never
// a non-2xx completed response, which is a spec-mandated UpstreamFailure
// the caller classifies separately.
func fetchManifestWithRetry(ctx context.Context, reg *pool.Registry, absoluteURL string, headers map[string]string, logger *zap.Logger) (*pool.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= manifestMaxRetries; attempt++ {
		resp, err := reg.Request(ctx, http.MethodGet, absoluteURL, headers, nil)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt < manifestMaxRetries {
			logger.Warn("manifest fetch transport failure, retrying",
				zap.String("url", absoluteURL), zap.Int("attempt", attempt), zap.Error(err))
			time.Sleep(manifestBaseBackoff * (1 << attempt))
		}
	}
	return nil, lastErr
}
