package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// resetFlags restores global flag state after each test.
func resetFlags(t *testing.T) {
	t.Helper()
	origURL, origFmt, origClient := flagURL, flagFmt, apiClient
	t.Cleanup(func() {
		flagURL = origURL
		flagFmt = origFmt
		apiClient = origClient
	})
}

// setEnv temporarily sets an environment variable and restores it on cleanup.
func setEnv(t *testing.T, key, val string) {
	t.Helper()
	prev, exists := os.LookupEnv(key)
	os.Setenv(key, val)
	t.Cleanup(func() {
		if exists {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

// unsetEnv temporarily unsets an environment variable and restores it on cleanup.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	prev, exists := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if exists {
			os.Setenv(key, prev)
		}
	})
}

// executeArgs runs a fresh root command and returns stdout and any error.
func executeArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	setEnv(t, "HOME", t.TempDir())
	unsetEnv(t, "NEXUS_URL")

	root := newRootCmd()

	var out strings.Builder
	root.SetOut(&out)
	root.SetErr(&strings.Builder{})
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeServer answers "METHOD /path" keys with canned JSON and records requests.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeServer(t *testing.T, routes map[string]any) *fakeServer {
	t.Helper()

	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}

		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}

		fs.mu.Lock()
		fs.requests = append(fs.requests, rec)
		fs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		resp, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "not_found", "message": "node not found"})

			return
		}

		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(fs.Close)

	return fs
}

func (fs *fakeServer) last(t *testing.T) recordedRequest {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(fs.requests) == 0 {
		t.Fatal("no requests recorded")
	}

	return fs.requests[len(fs.requests)-1]
}

func (fs *fakeServer) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return len(fs.requests)
}

func findCmd(t *testing.T, root *cobra.Command, args ...string) *cobra.Command {
	t.Helper()

	cmd, _, err := root.Find(args)
	if err != nil {
		t.Fatalf("find %v: %v", args, err)
	}

	return cmd
}
