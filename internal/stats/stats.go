package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds real-time aggregated metrics for one run.
type Stats struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64

	// Response time of every request, pass or fail (microseconds)
	ResponseTime *SafeHistogram

	mu          sync.Mutex
	statusCodes map[int]int
	failures    map[string]int
}

func NewStats() *Stats {
	return &Stats{
		ResponseTime: NewSafeHistogram(),
		statusCodes:  make(map[int]int),
		failures:     make(map[string]int),
	}
}

// Add records one request. failure is the message a failed request was marked with.
func (s *Stats) Add(success bool, status int, bytes int64, elapsed time.Duration, failure string) {
	atomic.AddUint64(&s.Requests, 1)
	if success {
		atomic.AddUint64(&s.Success, 1)
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
	if bytes > 0 {
		atomic.AddUint64(&s.Bytes, uint64(bytes))
	}

	s.ResponseTime.Record(elapsed)

	s.mu.Lock()
	s.statusCodes[status]++
	if !success {
		s.failures[failure]++
	}
	s.mu.Unlock()
}

func (s *Stats) Reset() {
	atomic.StoreUint64(&s.Requests, 0)
	atomic.StoreUint64(&s.Success, 0)
	atomic.StoreUint64(&s.Fail, 0)
	atomic.StoreUint64(&s.Bytes, 0)
	s.ResponseTime.Reset()

	s.mu.Lock()
	s.statusCodes = make(map[int]int)
	s.failures = make(map[string]int)
	s.mu.Unlock()
}

func (s *Stats) ErrorRate() float64 {
	reqs := atomic.LoadUint64(&s.Requests)
	if reqs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(reqs)) * 100
}

// GetStatusCodes returns a copy of the per-status request counts. Transport
// failures are counted under 0.
func (s *Stats) GetStatusCodes() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.statusCodes))
	for k, v := range s.statusCodes {
		out[k] = v
	}
	return out
}

// GetErrorCounts returns a copy of the failure message counts.
func (s *Stats) GetErrorCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.failures))
	for k, v := range s.failures {
		out[k] = v
	}
	return out
}

func (s *Stats) GetP50() float64 { return s.quantileMs(50) }
func (s *Stats) GetP90() float64 { return s.quantileMs(90) }
func (s *Stats) GetP95() float64 { return s.quantileMs(95) }
func (s *Stats) GetP99() float64 { return s.quantileMs(99) }

// MeanMs returns the average response time in milliseconds
func (s *Stats) MeanMs() float64 {
	return s.ResponseTime.Mean() / 1000.0
}

func (s *Stats) MaxMs() int64 {
	return s.ResponseTime.Max() / 1000
}

func (s *Stats) quantileMs(q float64) float64 {
	return float64(s.ResponseTime.ValueAtQuantile(q)) / 1000.0 // ms
}
