package runner

import (
	"time"

	"labload/internal/scenario"
)

type Config struct {
	Host          string        `json:"host"`
	TimeoutSec    int           `json:"timeout_sec"`
	EnableLogging bool          `json:"enable_logging"`
	NumUsers      int           `json:"users"`
	SpawnRate     float64       `json:"spawn_rate"` // users started per second
	RunTime       time.Duration `json:"run_time"`   // 0 runs until cancelled
	WaitMin       time.Duration `json:"wait_min"`
	WaitMax       time.Duration `json:"wait_max"`
	OutPrefix     string        `json:"out_prefix,omitempty"`
}

// Session derives the per-user scenario configuration.
func (c Config) Session() scenario.SessionConfig {
	return scenario.SessionConfig{
		Host:          c.Host,
		Timeout:       time.Duration(c.TimeoutSec) * time.Second,
		EnableLogging: c.EnableLogging,
		WaitTime:      scenario.Between(c.WaitMin, c.WaitMax),
	}
}

type Result struct {
	TimeStamp time.Time     `json:"timestamp"`
	Latency   time.Duration `json:"latency"`
	Name      string        `json:"name"`
	URL       string        `json:"url"`
	Status    int           `json:"status"`
	Success   bool          `json:"success"`
	Bytes     int64         `json:"bytes"`
	UserID    string        `json:"user_id"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func resultFrom(o scenario.Outcome) Result {
	res := Result{
		TimeStamp: o.Start,
		Latency:   o.Elapsed,
		Name:      o.Name,
		URL:       o.URL,
		Status:    o.Status,
		Success:   o.Success,
		Bytes:     o.Bytes,
		UserID:    o.SessionID,
		Message:   o.Message,
	}
	if o.Err != nil {
		res.Error = o.Err.Error()
	}
	return res
}
