package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"labload/internal/logging"
)

// Session is one simulated user: Start, then Task repeatedly, then Stop.
type Session struct {
	ID string

	cfg     SessionConfig
	target  string
	client  *http.Client
	console *logrus.Logger
	rec     Recorder
}

// NewSession snapshots cfg. Zero values fall back to a 90s timeout and a
// 1-3s wait between tasks. The client and console may be shared by sessions.
func NewSession(cfg SessionConfig, client *http.Client, console *logrus.Logger, rec Recorder) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.WaitTime == nil {
		cfg.WaitTime = Between(DefaultWaitMin, DefaultWaitMax)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if console == nil {
		console = logging.Discard()
	}

	return &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		target:  strings.TrimRight(cfg.Host, "/") + HomePath,
		client:  client,
		console: console,
		rec:     rec,
	}
}

// LoggingEnabled reports the flag captured at construction.
func (s *Session) LoggingEnabled() bool {
	return s.cfg.EnableLogging
}

// Wait returns the pause before the next task.
func (s *Session) Wait() time.Duration {
	return s.cfg.WaitTime()
}

func (s *Session) OnStart() {
	s.print("INFO", "Starting new user session")
}

// Task runs the scripted sequence for one cycle.
func (s *Session) Task(ctx context.Context) Outcome {
	return s.getHomepage(ctx)
}

func (s *Session) OnStop() {
	s.print("INFO", "Stopping user session")
}

// Classify is the only branching rule: 200 passes, anything else fails.
func Classify(status int) (bool, string) {
	if status == http.StatusOK {
		return true, ""
	}
	return false, fmt.Sprintf("%s failed with status %d", RequestName, status)
}

func (s *Session) getHomepage(ctx context.Context) (out Outcome) {
	out = Outcome{
		SessionID: s.ID,
		Name:      RequestName,
		Method:    http.MethodGet,
		URL:       HomePath,
		Start:     time.Now(),
	}

	s.print("REQUEST", fmt.Sprintf("%s - URL: %s", RequestName, HomePath))

	// Runs after the body is closed, on every return path.
	defer func() {
		out.Elapsed = time.Since(out.Start)
		out.Success, out.Message = Classify(out.Status)
		s.finish(out)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.target, nil)
	if err != nil {
		out.transportFailed(err)
		return out
	}

	resp, err := s.client.Do(req)
	if err != nil {
		out.transportFailed(err)
		return out
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		out.transportFailed(fmt.Errorf("read body: %w", err))
		return out
	}

	out.Status = resp.StatusCode
	out.Body = string(body)
	out.Bytes = int64(len(body))
	return out
}

func (o *Outcome) transportFailed(err error) {
	o.Status = 0
	o.Err = err
	o.Body = err.Error()
}

func (s *Session) finish(out Outcome) {
	if s.rec != nil {
		s.rec.Record(out)
	}

	if out.Success {
		s.print("SUCCESS", fmt.Sprintf("%s - Status: %d", out.Name, out.Status))
		return
	}
	s.print("ERROR", fmt.Sprintf("%s failed\n  URL: %s\n  Status Code: %d\n  Response: %s",
		out.Name, out.URL, out.Status, out.Body))
}

func (s *Session) print(tag, msg string) {
	if !s.cfg.EnableLogging {
		return
	}
	s.console.WithField(logging.TagField, tag).Info(msg)
}
