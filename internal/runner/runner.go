package runner

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"labload/internal/logging"
	"labload/internal/metrics"
	"labload/internal/scenario"
	"labload/internal/stats"
)

// StatsSnapshot is sent over the channel
type StatsSnapshot struct {
	Elapsed  time.Duration
	Users    int64
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64
	Inflight int64

	// Pre-calculated percentiles for the UI (cheap copy)
	P50Ms  float64
	P90Ms  float64
	P95Ms  float64
	P99Ms  float64
	MeanMs float64
	MaxMs  int64

	StatusCodes map[int]int
	ErrorCounts map[string]int
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

// Runner spawns virtual users and is the Recorder their sessions report into.
type Runner struct {
	Cfg     Config
	Stats   *stats.Stats
	Client  *http.Client
	Metrics *metrics.Collector

	// Console receives scenario output; Log receives runtime lifecycle messages.
	Console *logrus.Logger
	Log     *logrus.Logger

	Results []Result
	mu      sync.Mutex

	inflight int64
	users    int64
	started  time.Time
	finished time.Time
	done     chan struct{}

	// Event Channel
	Updates StatsUpdateChan
}

func NewRunner(cfg Config, updates StatsUpdateChan) *Runner {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	client := &http.Client{
		Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
		Transport: t,
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}

	return &Runner{
		Cfg:     cfg,
		Stats:   stats.NewStats(),
		Client:  client,
		Metrics: metrics.NewCollector(),
		Console: logging.Discard(),
		Log:     logging.Discard(),
		Updates: updates,
		done:    make(chan struct{}),
	}
}

// Done is closed once Run has stopped every user.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) Snapshot() StatsSnapshot {
	var elapsed time.Duration
	r.mu.Lock()
	switch {
	case !r.finished.IsZero():
		elapsed = r.finished.Sub(r.started)
	case !r.started.IsZero():
		elapsed = time.Since(r.started)
	}
	r.mu.Unlock()

	return StatsSnapshot{
		Elapsed:     elapsed,
		Users:       atomic.LoadInt64(&r.users),
		Requests:    atomic.LoadUint64(&r.Stats.Requests),
		Success:     atomic.LoadUint64(&r.Stats.Success),
		Fail:        atomic.LoadUint64(&r.Stats.Fail),
		Bytes:       atomic.LoadUint64(&r.Stats.Bytes),
		Inflight:    atomic.LoadInt64(&r.inflight),
		P50Ms:       r.Stats.GetP50(),
		P90Ms:       r.Stats.GetP90(),
		P95Ms:       r.Stats.GetP95(),
		P99Ms:       r.Stats.GetP99(),
		MeanMs:      r.Stats.MeanMs(),
		MaxMs:       r.Stats.MaxMs(),
		StatusCodes: r.Stats.GetStatusCodes(),
		ErrorCounts: r.Stats.GetErrorCounts(),
	}
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.Updates <- r.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run blocks until RunTime elapses or ctx is cancelled and every user has
// stopped. In-flight requests finish before their user stops.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	if r.Cfg.RunTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Cfg.RunTime)
		defer cancel()
	}

	r.mu.Lock()
	r.started = time.Now()
	r.mu.Unlock()

	// Start Tick Loop for UI
	r.StartTickLoop(ctx, 200*time.Millisecond)

	r.Log.WithFields(logrus.Fields{
		"host":       r.Cfg.Host,
		"users":      r.Cfg.NumUsers,
		"spawn_rate": r.Cfg.SpawnRate,
		"run_time":   r.Cfg.RunTime,
	}).Info("Spawning users")

	r.runUsers(ctx)

	// Elapsed stops here; later snapshots describe the finished run.
	r.mu.Lock()
	r.finished = time.Now()
	elapsed := r.finished.Sub(r.started)
	r.mu.Unlock()
	r.sendUpdate()

	r.Log.WithFields(logrus.Fields{
		"requests": atomic.LoadUint64(&r.Stats.Requests),
		"failures": atomic.LoadUint64(&r.Stats.Fail),
		"elapsed":  elapsed.Round(time.Millisecond),
	}).Info("Run complete")
}

func (r *Runner) runUsers(ctx context.Context) {
	var wg sync.WaitGroup

	interval := time.Duration(0)
	if r.Cfg.SpawnRate > 0 {
		interval = time.Duration(float64(time.Second) / r.Cfg.SpawnRate)
	}

spawn:
	for i := 0; i < r.Cfg.NumUsers; i++ {
		if i > 0 && interval > 0 {
			t := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				t.Stop()
				break spawn
			case <-t.C:
			}
		} else if ctx.Err() != nil {
			break spawn
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runUser(ctx)
		}()
	}

	if ctx.Err() == nil {
		r.Log.WithField("users", r.Cfg.NumUsers).Debug("All users spawned")
	}
	wg.Wait()
}

func (r *Runner) runUser(ctx context.Context) {
	sess := scenario.NewSession(r.Cfg.Session(), r.Client, r.Console, r)

	atomic.AddInt64(&r.users, 1)
	r.Metrics.UserStarted()
	defer func() {
		atomic.AddInt64(&r.users, -1)
		r.Metrics.UserStopped()
	}()

	sess.OnStart()
	defer sess.OnStop()

	// The run ending must not abort a request already on the wire.
	reqCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		atomic.AddInt64(&r.inflight, 1)
		sess.Task(reqCtx)
		atomic.AddInt64(&r.inflight, -1)

		t := time.NewTimer(sess.Wait())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// Record implements scenario.Recorder. Per-request rows are only kept when
// a report prefix is set.
func (r *Runner) Record(o scenario.Outcome) {
	r.Stats.Add(o.Success, o.Status, o.Bytes, o.Elapsed, o.Message)
	r.Metrics.Observe(o.Name, o.Status, o.Success, o.Bytes, o.Elapsed)

	if r.Cfg.OutPrefix == "" {
		return
	}
	r.mu.Lock()
	r.Results = append(r.Results, resultFrom(o))
	r.mu.Unlock()
}

func (r *Runner) GetInflight() int64 {
	return atomic.LoadInt64(&r.inflight)
}

func (r *Runner) GetUsers() int64 {
	return atomic.LoadInt64(&r.users)
}

// ResultsCopy returns the per-request results recorded so far.
func (r *Runner) ResultsCopy() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.Results))
	copy(out, r.Results)
	return out
}
