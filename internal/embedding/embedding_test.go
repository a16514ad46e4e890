package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// mockProvider is a hand-rolled Provider with overridable behavior.
type mockProvider struct {
	mu           sync.Mutex
	calls        []string
	embedFn      func(ctx context.Context, text string) ([]float64, error)
	embedBatchFn func(ctx context.Context, texts []string) ([][]float64, error)
}

func (m *mockProvider) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call)
}

func (m *mockProvider) callCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}

	return n
}

func (m *mockProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	m.record("Embed:" + text)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}

	return []float64{1, 0, 0}, nil
}

func (m *mockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	m.record("EmbedBatch")
	if m.embedBatchFn != nil {
		return m.embedBatchFn(ctx, texts)
	}

	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}

	return out, nil
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}

	return math.Sqrt(s)
}

func TestFallback_Deterministic(t *testing.T) {
	t.Parallel()

	f := NewFallback(0)
	a := f.Vector("Net Present Value: discounted cash flows")
	b := f.Vector("Net Present Value: discounted cash flows")

	if len(a) != DefaultFallbackDimensions {
		t.Fatalf("expected %d dims, got %d", DefaultFallbackDimensions, len(a))
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fallback not deterministic at %d", i)
		}
	}

	if math.Abs(norm(a)-1) > 1e-9 {
		t.Errorf("expected unit vector, got norm %v", norm(a))
	}
}

func TestFallback_Normalization(t *testing.T) {
	t.Parallel()

	f := NewFallback(64)

	// Punctuation and case are ignored; short words are dropped.
	a := f.Vector("NPV, is a KEY!")
	b := f.Vector("npv key")

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical vectors, differ at %d", i)
		}
	}

	zero := f.Vector("a an to")
	if norm(zero) != 0 {
		t.Errorf("expected zero vector for text without long words, got norm %v", norm(zero))
	}
}

func TestFallback_KnownPositions(t *testing.T) {
	t.Parallel()

	// "abc" is word 0: chars 97, 98, 99 land on those positions with weight 1.
	v := NewFallback(128).Vector("abc")
	want := 1 / math.Sqrt(3)

	for _, pos := range []int{97, 98, 99} {
		if math.Abs(v[pos]-want) > 1e-9 {
			t.Errorf("position %d: got %v, want %v", pos, v[pos], want)
		}
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 150)
	if got := CacheKey(long); len([]rune(got)) != 100 {
		t.Errorf("expected 100 runes, got %d", len([]rune(got)))
	}

	if CacheKey("short") != "short" {
		t.Error("short text should be its own key")
	}
}

func TestService_CachesRemoteResults(t *testing.T) {
	t.Parallel()

	remote := &mockProvider{}
	cache, err := NewLRUCache(16)
	if err != nil {
		t.Fatal(err)
	}

	svc := NewService(remote, "mock", testLogger(), WithCache(cache))

	for range 3 {
		v, err := svc.Embed(context.Background(), "NPV: net present value")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(v) != 3 || v[0] != 1 {
			t.Fatalf("unexpected vector %v", v)
		}
	}

	if n := remote.callCount("Embed:"); n != 1 {
		t.Errorf("expected 1 remote call, got %d", n)
	}
}

func TestService_FallsBackOnError(t *testing.T) {
	t.Parallel()

	remote := &mockProvider{
		embedFn: func(context.Context, string) ([]float64, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	cache, _ := NewLRUCache(16)
	svc := NewService(remote, "mock", testLogger(), WithCache(cache))

	got, err := svc.Embed(context.Background(), "internal rate of return")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := NewFallback(0).Vector("internal rate of return")
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("expected fallback vector")
	}

	if cache.Len() != 0 {
		t.Error("fallback vectors should not be cached")
	}
}

func TestService_FallsBackOnTimeout(t *testing.T) {
	t.Parallel()

	remote := &mockProvider{
		embedFn: func(ctx context.Context, _ string) ([]float64, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := NewService(remote, "mock", testLogger(), WithTimeout(20*time.Millisecond))

	start := time.Now()

	got, err := svc.Embed(context.Background(), "slow provider")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(got) != DefaultFallbackDimensions {
		t.Errorf("expected fallback vector, got %d dims", len(got))
	}

	if time.Since(start) > 2*time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestService_BreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	remote := &mockProvider{
		embedFn: func(context.Context, string) ([]float64, error) {
			return nil, errors.New("down")
		},
	}
	svc := NewService(remote, "mock", testLogger())

	for i := range 10 {
		if _, err := svc.Embed(context.Background(), "text "+strings.Repeat("x", i)); err != nil {
			t.Fatal(err)
		}
	}

	if n := remote.callCount("Embed:"); n != cbFailureThreshold {
		t.Errorf("expected breaker to stop calls after %d failures, got %d calls", cbFailureThreshold, n)
	}
}

func TestService_CancelledCallersDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	var cancelCaller context.CancelFunc
	remote := &mockProvider{
		embedFn: func(ctx context.Context, text string) ([]float64, error) {
			if strings.HasPrefix(text, "superseded") {
				cancelCaller()
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return []float64{1, 0, 0}, nil
		},
	}
	svc := NewService(remote, "mock", testLogger(), WithDimensions(3))

	for i := range cbFailureThreshold + 2 {
		ctx, cancel := context.WithCancel(context.Background())
		cancelCaller = cancel

		if _, err := svc.Embed(ctx, "superseded "+strings.Repeat("x", i)); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i, err)
		}
	}

	gone, cancel := context.WithCancel(context.Background())
	cancel()

	before := remote.callCount("")
	if _, err := svc.Embed(gone, "already gone"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := svc.EmbedBatch(gone, []string{"a", "b"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from batch, got %v", err)
	}
	if n := remote.callCount(""); n != before {
		t.Errorf("cancelled callers reached the provider: %d calls, want %d", n, before)
	}

	got, err := svc.Embed(context.Background(), "fresh query")
	if err != nil {
		t.Fatal(err)
	}

	if remote.callCount("Embed:fresh query") != 1 {
		t.Error("breaker opened after cancelled callers; fresh query never reached the provider")
	}

	if len(got) != 3 || got[0] != 1 {
		t.Errorf("expected the remote vector, got %d-dim %v", len(got), got[:min(3, len(got))])
	}
}

func TestService_RejectsWrongDimensions(t *testing.T) {
	t.Parallel()

	remote := &mockProvider{}
	svc := NewService(remote, "mock", testLogger(), WithDimensions(8))

	got, _ := svc.Embed(context.Background(), "dimension mismatch")
	if len(got) != 8 {
		t.Errorf("expected 8-dim fallback vector, got %d", len(got))
	}
}

func TestService_NilRemoteUsesFallback(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, "fallback", testLogger())

	got, err := svc.Embed(context.Background(), "present value")
	if err != nil || len(got) != DefaultFallbackDimensions {
		t.Fatalf("unexpected result: %d dims, err %v", len(got), err)
	}

	batch, err := svc.EmbedBatch(context.Background(), []string{"one word", "two words"})
	if err != nil || len(batch) != 2 {
		t.Fatalf("unexpected batch result: %d, err %v", len(batch), err)
	}
}

func TestService_EmbedBatch(t *testing.T) {
	t.Parallel()

	t.Run("single remote call for misses", func(t *testing.T) {
		t.Parallel()

		remote := &mockProvider{
			embedBatchFn: func(_ context.Context, texts []string) ([][]float64, error) {
				out := make([][]float64, len(texts))
				for i, txt := range texts {
					out[i] = []float64{float64(len(txt)), 1, 0}
				}
				return out, nil
			},
		}
		cache, _ := NewLRUCache(16)
		cache.Set(context.Background(), "cached", []float64{9, 9, 9})
		svc := NewService(remote, "mock", testLogger(), WithCache(cache))

		got, err := svc.EmbedBatch(context.Background(), []string{"ab", "cached", "abcd"})
		if err != nil {
			t.Fatal(err)
		}

		if got[0][0] != 2 || got[1][0] != 9 || got[2][0] != 4 {
			t.Errorf("order not preserved: %v", got)
		}

		if n := remote.callCount("EmbedBatch"); n != 1 {
			t.Errorf("expected one batch call, got %d", n)
		}
	})

	t.Run("partial failure falls back per item", func(t *testing.T) {
		t.Parallel()

		remote := &mockProvider{
			embedBatchFn: func(context.Context, []string) ([][]float64, error) {
				return nil, errors.New("batch rejected")
			},
			embedFn: func(_ context.Context, text string) ([]float64, error) {
				if text == "bad" {
					return nil, errors.New("item rejected")
				}
				return []float64{0, 1, 0}, nil
			},
		}
		svc := NewService(remote, "mock", testLogger())

		got, err := svc.EmbedBatch(context.Background(), []string{"good", "bad", "fine"})
		if err != nil {
			t.Fatal(err)
		}

		if len(got) != 3 {
			t.Fatalf("expected 3 vectors, got %d", len(got))
		}

		if len(got[0]) != 3 || len(got[2]) != 3 {
			t.Error("expected remote vectors for good items")
		}

		if len(got[1]) != DefaultFallbackDimensions {
			t.Errorf("expected fallback for failed item, got %d dims", len(got[1]))
		}
	})
}

func TestOllama_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req struct {
			Model string `json:"model"`
			Input any    `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck

		if req.Model != "nomic" {
			t.Errorf("unexpected model %q", req.Model)
		}

		resp := map[string]any{"embeddings": [][]float64{{0.1, 0.2}}}
		if inputs, ok := req.Input.([]any); ok {
			embs := make([][]float64, len(inputs))
			for i := range inputs {
				embs[i] = []float64{float64(i), 1}
			}
			resp["embeddings"] = embs
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)

	o := NewOllama(srv.URL+"/", "nomic")

	v, err := o.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}

	if len(v) != 2 || v[1] != 0.2 {
		t.Errorf("unexpected vector %v", v)
	}

	batch, err := o.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}

	if len(batch) != 3 || batch[2][0] != 2 {
		t.Errorf("unexpected batch %v", batch)
	}
}

func TestOllama_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewOllama(srv.URL, "m").Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestGemini_EmbedAndBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/models/text-embedding-004:embedContent":
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"embedding": map[string]any{"values": []float64{0.5, 0.5}},
			})
		case "/models/text-embedding-004:batchEmbedContents":
			var req geminiBatchRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck

			embs := make([]map[string]any, len(req.Requests))
			for i, rq := range req.Requests {
				if rq.Model != "models/text-embedding-004" {
					t.Errorf("unexpected model %q", rq.Model)
				}
				embs[i] = map[string]any{"values": []float64{float64(i), 0}}
			}
			json.NewEncoder(w).Encode(map[string]any{"embeddings": embs}) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	g := NewGemini(srv.URL, "models/text-embedding-004", "secret")

	v, err := g.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}

	if len(v) != 2 {
		t.Errorf("unexpected vector %v", v)
	}

	batch, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}

	if batch[1][0] != 1 {
		t.Errorf("unexpected batch %v", batch)
	}

	bad := NewGemini(srv.URL, "text-embedding-004", "wrong")
	if _, err := bad.Embed(context.Background(), "x"); err == nil {
		t.Error("expected auth failure to surface from the raw provider")
	}
}

func TestTieredCache_BackfillsLocal(t *testing.T) {
	t.Parallel()

	local, _ := NewLRUCache(4)
	shared, _ := NewLRUCache(4)
	shared.Set(context.Background(), "k", []float64{1, 2})

	tc := NewTieredCache(local, shared)

	if _, ok := tc.Get(context.Background(), "k"); !ok {
		t.Fatal("expected shared hit")
	}

	if _, ok := local.Get(context.Background(), "k"); !ok {
		t.Error("expected local tier to be back-filled")
	}
}

func TestRedisCache_UnreachableIsMiss(t *testing.T) {
	t.Parallel()

	_, err := NewRedisCache(context.Background(), "127.0.0.1:1", "m", time.Minute, testLogger())
	if err == nil {
		t.Fatal("expected ping failure for unreachable redis")
	}
}
