// Package prefetch implements the Prefetch Orchestrator of spec.md §4.5: it
// takes the segment URL list a media playlist rewrite produced and warms
// the Segment Cache in the background, without delaying the client's
// response.
//
// Grounded on the teacher's internal/proxy circuit breaker/retry
// middlewares for the "log and move on, never fail the caller" shape, and
// on golang.org/x/sync/errgroup for the uncapped fan-out spec.md §9
// explicitly calls out as a known, intentional hazard.
package prefetch

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sofatutor/hlsproxy/internal/headerpolicy"
	"github.com/sofatutor/hlsproxy/internal/pool"
	"github.com/sofatutor/hlsproxy/internal/segmentcache"
)

// Requester is the subset of *pool.Registry the orchestrator needs,
// narrowed for testability.
type Requester interface {
	Request(ctx context.Context, method, absoluteURL string, headers map[string]string, body io.Reader) (*pool.Response, error)
}

// Orchestrator runs prefetch fan-outs against a shared cache and pool
// registry. disabled is polled fresh on every call, per spec.md §4.5's
// DISABLE_CACHE semantics.
type Orchestrator struct {
	cache     *segmentcache.Cache
	requester Requester
	logger    *zap.Logger
	disabled  func() bool
}

// New creates an Orchestrator.
func New(cache *segmentcache.Cache, requester Requester, logger *zap.Logger, disabled func() bool) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if disabled == nil {
		disabled = func() bool { return false }
	}
	return &Orchestrator{cache: cache, requester: requester, logger: logger, disabled: disabled}
}

// Prefetch launches the fan-out described in spec.md §4.5 in the background
// and returns immediately: it is fire-and-forget, so the caller (the
// /m3u8-proxy handler) never waits on it. outboundHeaders is the already
// scrubbed, escape-hatch-translated header set the segment requests should
// carry.
func (o *Orchestrator) Prefetch(segments []string, outboundHeaders headerpolicy.Headers) {
	if len(segments) == 0 {
		return
	}
	go o.run(segments, outboundHeaders)
}

// run performs step 1 and 2 of spec.md §4.5. It always uses a background
// context: client disconnection must not cancel in-flight prefetches
// (spec.md §5), since their bytes remain valuable regardless of whether the
// triggering request is still alive.
func (o *Orchestrator) run(segments []string, outboundHeaders headerpolicy.Headers) {
	if o.disabled() {
		return
	}
	o.cache.Cleanup()

	var g errgroup.Group
	for _, seg := range segments {
		seg := seg
		g.Go(func() error {
			o.prefetchOne(seg, outboundHeaders)
			return nil
		})
	}
	_ = g.Wait()
}

// prefetchOne implements one prefetch task: cache-skip-if-live, otherwise
// fetch, and on 2xx cache the body and headers. Failures are logged only;
// spec.md §7's PrefetchFailure never surfaces to a caller because Prefetch
// is fire-and-forget.
func (o *Orchestrator) prefetchOne(segmentURL string, outboundHeaders headerpolicy.Headers) {
	if o.disabled() {
		return
	}
	if _, ok := o.cache.Get(segmentURL); ok {
		return
	}

	resp, err := o.requester.Request(context.Background(), http.MethodGet, segmentURL, outboundHeaders, nil)
	if err != nil {
		o.logger.Warn("prefetch request failed", zap.String("url", segmentURL), zap.Error(err))
		return
	}
	defer resp.BodyStream.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.logger.Warn("prefetch aborted on non-2xx response",
			zap.String("url", segmentURL), zap.Int("status", resp.StatusCode))
		return
	}

	body, err := io.ReadAll(resp.BodyStream)
	if err != nil {
		o.logger.Warn("prefetch failed reading body", zap.String("url", segmentURL), zap.Error(err))
		return
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	o.cache.Set(segmentURL, resp.StatusCode, body, headers)
}
