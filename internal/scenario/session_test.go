package scenario

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"labload/internal/logging"
)

type captured struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *captured) Record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

// SessionTestSuite drives sessions against an httptest target.
type SessionTestSuite struct {
	suite.Suite
	status int
	body   string
	paths  []string
	server *httptest.Server
	out    *bytes.Buffer
	rec    *captured
}

func (s *SessionTestSuite) SetupTest() {
	s.status = http.StatusOK
	s.body = "home"
	s.paths = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.paths = append(s.paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(s.status)
		w.Write([]byte(s.body))
	}))
	s.out = &bytes.Buffer{}
	s.rec = &captured{}
}

func (s *SessionTestSuite) TearDownTest() {
	s.server.Close()
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (s *SessionTestSuite) newSession(enabled bool) *Session {
	cfg := SessionConfig{
		Host:          s.server.URL + "/",
		Timeout:       2 * time.Second,
		EnableLogging: enabled,
	}
	return NewSession(cfg, s.server.Client(), logging.NewConsole(s.out), s.rec)
}

func (s *SessionTestSuite) TestSuccess() {
	sess := s.newSession(true)

	out := sess.Task(context.Background())

	s.True(out.Success)
	s.Empty(out.Message)
	s.Equal(200, out.Status)
	s.Equal([]string{"GET /"}, s.paths)
	s.Equal(
		"[REQUEST] Get the homepage - URL: /\n"+
			"[SUCCESS] Get the homepage - Status: 200\n",
		s.out.String())

	s.Require().Len(s.rec.outcomes, 1)
	s.Equal(sess.ID, s.rec.outcomes[0].SessionID)
	s.Equal(int64(4), s.rec.outcomes[0].Bytes)
}

func (s *SessionTestSuite) TestServiceUnavailable() {
	s.status = http.StatusServiceUnavailable
	s.body = "Service Unavailable"
	sess := s.newSession(true)

	out := sess.Task(context.Background())

	s.False(out.Success)
	s.Contains(out.Message, "503")
	s.Equal("Get the homepage failed with status 503", out.Message)
	s.Equal(
		"[REQUEST] Get the homepage - URL: /\n"+
			"[ERROR] Get the homepage failed\n"+
			"  URL: /\n"+
			"  Status Code: 503\n"+
			"  Response: Service Unavailable\n",
		s.out.String())
	s.Require().Len(s.rec.outcomes, 1)
	s.False(s.rec.outcomes[0].Success)
}

func (s *SessionTestSuite) TestLoggingDisabledIsSilent() {
	s.status = http.StatusInternalServerError
	sess := s.newSession(false)

	sess.OnStart()
	out := sess.Task(context.Background())
	sess.OnStop()

	s.False(out.Success)
	s.Empty(s.out.String())
	s.Len(s.rec.outcomes, 1)
}

func (s *SessionTestSuite) TestLifecycleLines() {
	sess := s.newSession(true)

	sess.OnStart()
	sess.OnStop()

	s.Equal("[INFO] Starting new user session\n[INFO] Stopping user session\n", s.out.String())
}

func (s *SessionTestSuite) TestTransportFailure() {
	sess := s.newSession(true)
	s.server.Close()

	out := sess.Task(context.Background())

	s.False(out.Success)
	s.Equal(0, out.Status)
	s.Error(out.Err)
	s.Contains(out.Message, "status 0")
	s.Contains(s.out.String(), "  Status Code: 0\n")
	s.Require().Len(s.rec.outcomes, 1)
}

func TestClassify(t *testing.T) {
	ok, msg := Classify(200)
	assert.True(t, ok)
	assert.Empty(t, msg)

	for _, code := range []int{0, 201, 204, 301, 404, 429, 500, 503} {
		ok, msg := Classify(code)
		assert.False(t, ok, "status %d", code)
		assert.Contains(t, msg, strconv.Itoa(code), "status %d", code)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	sess := NewSession(SessionConfig{Host: srv.URL, Timeout: 50 * time.Millisecond}, nil, nil, nil)
	out := sess.Task(context.Background())

	assert.False(t, out.Success)
	assert.Equal(t, 0, out.Status)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestDefaults(t *testing.T) {
	sess := NewSession(SessionConfig{Host: "http://example.invalid"}, nil, nil, nil)

	assert.Equal(t, DefaultTimeout, sess.cfg.Timeout)
	assert.Equal(t, "http://example.invalid/", sess.target)
	assert.False(t, sess.LoggingEnabled())
	for i := 0; i < 50; i++ {
		w := sess.Wait()
		require.GreaterOrEqual(t, w, DefaultWaitMin)
		require.LessOrEqual(t, w, DefaultWaitMax)
	}
}

func TestBetween(t *testing.T) {
	w := Between(30*time.Millisecond, 10*time.Millisecond)
	for i := 0; i < 100; i++ {
		d := w()
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 30*time.Millisecond)
	}
	assert.Equal(t, 5*time.Millisecond, Between(5*time.Millisecond, 5*time.Millisecond)())
	assert.Equal(t, time.Second, Constant(time.Second)())
}
