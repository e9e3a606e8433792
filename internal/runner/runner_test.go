package runner

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labload/internal/logging"
)

func testConfig(host string) Config {
	return Config{
		Host:          host,
		TimeoutSec:    2,
		EnableLogging: true,
		NumUsers:      3,
		SpawnRate:     1000,
		RunTime:       300 * time.Millisecond,
		WaitMin:       5 * time.Millisecond,
		WaitMax:       10 * time.Millisecond,
	}
}

func newTarget(t *testing.T, status int, hits *int64) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		w.WriteHeader(status)
		w.Write([]byte("body"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunUsersLifecycle(t *testing.T) {
	var hits int64
	srv := newTarget(t, http.StatusOK, &hits)
	console := &bytes.Buffer{}

	cfg := testConfig(srv.URL)
	cfg.OutPrefix = "report"
	r := NewRunner(cfg, nil)
	r.Console = logging.NewConsole(console)
	r.Run(context.Background())

	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}

	out := console.String()
	assert.Equal(t, 3, strings.Count(out, "[INFO] Starting new user session\n"))
	assert.Equal(t, 3, strings.Count(out, "[INFO] Stopping user session\n"))
	assert.Equal(t, strings.Count(out, "[REQUEST] "), strings.Count(out, "[SUCCESS] "))

	require.Greater(t, r.Stats.Requests, uint64(3))
	assert.Equal(t, r.Stats.Requests, r.Stats.Success)
	assert.Zero(t, r.Stats.Fail)
	assert.Equal(t, uint64(atomic.LoadInt64(&hits)), r.Stats.Requests)
	assert.Len(t, r.ResultsCopy(), int(r.Stats.Requests))
	assert.Zero(t, r.GetUsers())
	assert.Zero(t, r.GetInflight())
}

func TestRunRecordsFailures(t *testing.T) {
	var hits int64
	srv := newTarget(t, http.StatusInternalServerError, &hits)

	cfg := testConfig(srv.URL)
	cfg.EnableLogging = false
	cfg.OutPrefix = "report"
	console := &bytes.Buffer{}

	r := NewRunner(cfg, nil)
	r.Console = logging.NewConsole(console)
	r.Run(context.Background())

	assert.Empty(t, console.String())
	require.NotZero(t, r.Stats.Requests)
	assert.Equal(t, r.Stats.Requests, r.Stats.Fail)
	assert.Equal(t, map[int]int{500: int(r.Stats.Requests)}, r.Stats.GetStatusCodes())
	assert.Contains(t, r.Stats.GetErrorCounts(), "Get the homepage failed with status 500")

	res := r.ResultsCopy()
	assert.False(t, res[0].Success)
	assert.Equal(t, "/", res[0].URL)
	assert.NotEmpty(t, res[0].UserID)
}

func TestRunStopsOnCancel(t *testing.T) {
	var hits int64
	srv := newTarget(t, http.StatusOK, &hits)

	cfg := testConfig(srv.URL)
	cfg.RunTime = 0

	r := NewRunner(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())

	go r.Run(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	assert.NotZero(t, r.Stats.Requests)
}

func TestSpawnRateLimitsUsers(t *testing.T) {
	var hits int64
	srv := newTarget(t, http.StatusOK, &hits)

	cfg := testConfig(srv.URL)
	cfg.NumUsers = 10
	cfg.SpawnRate = 10
	cfg.RunTime = 150 * time.Millisecond
	console := &bytes.Buffer{}

	r := NewRunner(cfg, nil)
	r.Console = logging.NewConsole(console)
	r.Run(context.Background())

	started := strings.Count(console.String(), "Starting new user session")
	assert.GreaterOrEqual(t, started, 1)
	assert.Less(t, started, 10)
}

func TestUpdatesAreSent(t *testing.T) {
	var hits int64
	srv := newTarget(t, http.StatusOK, &hits)

	updates := make(StatsUpdateChan, 100)
	r := NewRunner(testConfig(srv.URL), updates)
	r.Run(context.Background())

	var last StatsSnapshot
	n := len(updates)
	require.NotZero(t, n)
	for i := 0; i < n; i++ {
		last = <-updates
	}
	assert.Equal(t, r.Stats.Requests, last.Requests)
	assert.Equal(t, int(last.Requests), last.StatusCodes[200])
	assert.Greater(t, last.Elapsed, time.Duration(0))
}

func TestConfigSession(t *testing.T) {
	cfg := Config{Host: "http://h", TimeoutSec: 90, EnableLogging: true, WaitMin: time.Second, WaitMax: 3 * time.Second}
	sc := cfg.Session()

	assert.Equal(t, 90*time.Second, sc.Timeout)
	assert.True(t, sc.EnableLogging)
	w := sc.WaitTime()
	assert.GreaterOrEqual(t, w, time.Second)
	assert.LessOrEqual(t, w, 3*time.Second)
}

func TestElapsedFreezesWhenDone(t *testing.T) {
	var hits int64
	srv := newTarget(t, http.StatusOK, &hits)

	cfg := testConfig(srv.URL)
	cfg.RunTime = 100 * time.Millisecond

	r := NewRunner(cfg, nil)
	r.Run(context.Background())
	<-r.Done()

	first := r.Snapshot().Elapsed
	time.Sleep(150 * time.Millisecond)
	second := r.Snapshot().Elapsed

	assert.GreaterOrEqual(t, first, cfg.RunTime)
	assert.Equal(t, first, second)
}

func TestResultsKeptOnlyForReports(t *testing.T) {
	var hits int64
	srv := newTarget(t, http.StatusOK, &hits)

	r := NewRunner(testConfig(srv.URL), nil)
	r.Run(context.Background())

	require.NotZero(t, r.Stats.Requests)
	assert.Empty(t, r.ResultsCopy())
}
