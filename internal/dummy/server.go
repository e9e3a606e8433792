package dummy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Port int

	// Status and Body answer GET /. Zero values mean 200 "Welcome home".
	Status int
	Body   string

	// Latency adds up to this much random delay to every response.
	Latency time.Duration
}

func NewHandler(cfg ServerConfig) http.Handler {
	status := cfg.Status
	if status == 0 {
		status = http.StatusOK
	}
	body := cfg.Body
	if body == "" {
		body = "Welcome home"
	}

	delay := func() {
		if cfg.Latency > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(cfg.Latency))))
		}
	}

	mux := http.NewServeMux()

	// 1. Homepage
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		delay()
		w.WriteHeader(status)
		w.Write([]byte(body))
	})

	// 2. Flaky homepage (Random 503s). labload always requests <host>/, so
	// --host http://localhost:8080/flaky arrives as /flaky/.
	flaky := func(w http.ResponseWriter, r *http.Request) {
		delay()
		if rand.Float32() < 0.2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service Unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
	mux.HandleFunc("GET /flaky", flaky)
	mux.HandleFunc("GET /flaky/{$}", flaky)

	return mux
}

// Start serves the dummy target until ctx is done.
func Start(ctx context.Context, cfg ServerConfig, log *logrus.Logger) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"addr":   "http://localhost" + addr,
		"status": cfg.Status,
	}).Info("Dummy server running (endpoints: /, /flaky)")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dummy server: %w", err)
	}
	return nil
}
