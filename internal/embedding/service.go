package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/studynexus/nexus/internal/metrics"
)

// Defaults for the resilient embedding service.
const (
	DefaultTimeout = 10 * time.Second

	cbFailureThreshold = 5
	cbCooldown         = 30 * time.Second
	batchFanout        = 4
)

// errCallerGone marks a remote failure caused by the caller's own context
// ending. The breaker does not count it against the provider.
var errCallerGone = errors.New("caller context ended")

// Service fronts a remote Provider with a cache, a circuit breaker, a
// per-call deadline and the deterministic fallback. Its Embed and EmbedBatch
// never return an error.
type Service struct {
	remote   Provider
	name     string
	fallback *Fallback
	cache    Cache
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	dims     int
	log      *logrus.Logger
}

var _ Provider = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithCache sets the embedding cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithTimeout sets the per-call deadline for remote requests.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDimensions fixes the expected vector size. Remote vectors of any other
// size are rejected, and the fallback produces vectors of this size.
func WithDimensions(dims int) Option {
	return func(s *Service) {
		if dims > 0 {
			s.dims = dims
		}
	}
}

// NewService wraps remote. A nil remote serves every request from the
// fallback. name labels metrics and logs.
func NewService(remote Provider, name string, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		remote:  remote,
		name:    name,
		timeout: DefaultTimeout,
		log:     log,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.fallback = NewFallback(s.dims)

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-" + name,
		MaxRequests: 1,
		Timeout:     cbCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("embedding circuit breaker state changed")
		},
	})

	return s
}

// Name returns the provider label.
func (s *Service) Name() string {
	return s.name
}

// Remote reports whether a remote provider is configured.
func (s *Service) Remote() bool {
	return s.remote != nil
}

// Embed returns the embedding for text, serving it from cache when possible
// and degrading to the fallback on any remote failure. The only error is
// ctx's own: a cancelled caller gets no vector, so nothing computed for a
// superseded request can be stored.
func (s *Service) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := CacheKey(text)
	if v, ok := s.cacheGet(ctx, key); ok {
		return v, nil
	}

	return s.embedMiss(ctx, key, text)
}

// EmbedBatch embeds texts preserving order. Cached entries are served
// directly, the rest go to the remote in a single batch. If that batch
// fails, each text is retried on its own and falls back individually.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float64, len(texts))

	var missIdx []int
	for i, t := range texts {
		if v, ok := s.cacheGet(ctx, CacheKey(t)); ok {
			out[i] = v
			continue
		}

		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		return out, nil
	}

	if s.remote == nil {
		for _, i := range missIdx {
			out[i] = s.fallbackFor(texts[i], "disabled")
		}

		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}

	vecs, err := s.callBatch(ctx, missTexts)
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}

	if err == nil {
		for j, i := range missIdx {
			out[i] = vecs[j]
			s.cacheSet(ctx, CacheKey(texts[i]), vecs[j])
		}

		return out, nil
	}

	s.log.WithError(err).WithField("count", len(missIdx)).Warn("batch embedding failed, embedding items individually")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchFanout)

	for _, i := range missIdx {
		g.Go(func() error {
			v, err := s.embedMiss(gctx, CacheKey(texts[i]), texts[i])
			out[i] = v
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) embedMiss(ctx context.Context, key, text string) ([]float64, error) {
	if s.remote == nil {
		return s.fallbackFor(text, "disabled"), nil
	}

	vec, err := s.call(ctx, text)
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}

	if err != nil {
		reason := fallbackReason(err)
		s.log.WithError(err).WithFields(logrus.Fields{
			"provider": s.name,
			"reason":   reason,
		}).Warn("embedding provider unavailable, using fallback")

		return s.fallbackFor(text, reason), nil
	}

	s.cacheSet(ctx, key, vec)

	return vec, nil
}

func (s *Service) call(ctx context.Context, text string) ([]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (any, error) {
		v, err := s.remote.Embed(callCtx, text)
		if err != nil {
			return nil, callerAware(ctx, err)
		}

		if err := s.checkDims(v); err != nil {
			return nil, err
		}

		return v, nil
	})
	s.recordRequest(err)

	if err != nil {
		return nil, err
	}

	return res.([]float64), nil
}

func (s *Service) callBatch(ctx context.Context, texts []string) ([][]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (any, error) {
		vecs, err := s.remote.EmbedBatch(callCtx, texts)
		if err != nil {
			return nil, callerAware(ctx, err)
		}

		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("provider returned %d embeddings for %d inputs", len(vecs), len(texts))
		}

		for _, v := range vecs {
			if err := s.checkDims(v); err != nil {
				return nil, err
			}
		}

		return vecs, nil
	})
	s.recordRequest(err)

	if err != nil {
		return nil, err
	}

	return res.([][]float64), nil
}

// callerAware tags err with errCallerGone when the caller's ctx, not the
// call timeout, ended the request.
func callerAware(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", errCallerGone, err)
	}

	return err
}

func (s *Service) checkDims(v []float64) error {
	if len(v) == 0 {
		return errors.New("provider returned an empty embedding")
	}

	if s.dims > 0 && len(v) != s.dims {
		return fmt.Errorf("provider returned %d dimensions, expected %d", len(v), s.dims)
	}

	return nil
}

func (s *Service) fallbackFor(text, reason string) []float64 {
	metrics.EmbeddingFallbacks.WithLabelValues(reason).Inc()

	return s.fallback.Vector(text)
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]float64, bool) {
	if s.cache == nil {
		return nil, false
	}

	v, ok := s.cache.Get(ctx, key)
	if ok {
		metrics.EmbeddingCache.WithLabelValues("hit").Inc()
	} else {
		metrics.EmbeddingCache.WithLabelValues("miss").Inc()
	}

	return v, ok
}

func (s *Service) cacheSet(ctx context.Context, key string, vec []float64) {
	if s.cache != nil {
		s.cache.Set(ctx, key, vec)
	}
}

func (s *Service) recordRequest(err error) {
	result := "ok"
	if err != nil {
		result = fallbackReason(err)
	}

	metrics.EmbeddingRequests.WithLabelValues(s.name, result).Inc()
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errCallerGone):
		return "canceled"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
