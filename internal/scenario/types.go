package scenario

import (
	"math/rand"
	"time"
)

const (
	// RequestName labels the homepage request in statistics and console output.
	RequestName = "Get the homepage"
	HomePath    = "/"

	DefaultTimeout = 90 * time.Second
	DefaultWaitMin = 1 * time.Second
	DefaultWaitMax = 3 * time.Second
)

// WaitFunc returns the pause a virtual user takes between two tasks.
type WaitFunc func() time.Duration

// Between returns a uniformly random pause in [min, max].
func Between(min, max time.Duration) WaitFunc {
	if max < min {
		min, max = max, min
	}
	return func() time.Duration {
		if max == min {
			return min
		}
		return min + time.Duration(rand.Int63n(int64(max-min)+1))
	}
}

// Constant always waits d.
func Constant(d time.Duration) WaitFunc {
	return func() time.Duration { return d }
}

// SessionConfig is copied into a session when it is built and never read again.
type SessionConfig struct {
	Host          string
	Timeout       time.Duration
	EnableLogging bool
	WaitTime      WaitFunc
}

// Outcome is the verdict for a single request.
type Outcome struct {
	SessionID string
	Name      string
	Method    string
	URL       string
	Start     time.Time
	Elapsed   time.Duration
	Status    int // 0 when the transport failed before a response arrived
	Success   bool
	Message   string
	Body      string
	Bytes     int64
	Err       error
}

// Recorder is the pass/fail accounting a session reports into.
type Recorder interface {
	Record(Outcome)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Outcome)

func (f RecorderFunc) Record(o Outcome) { f(o) }
