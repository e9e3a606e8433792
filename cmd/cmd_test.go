package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labload/internal/config"
	"labload/internal/report"
	"labload/internal/runner"
	"labload/internal/storage"
)

func TestFlagsFeedConfig(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags([]string{
		"--host", "http://PUBLIC_IP", "-u", "200", "-r", "10", "-t", "120s", "--timeout", "30",
	}))

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://PUBLIC_IP", cfg.Host)
	assert.Equal(t, 200, cfg.NumUsers)
	assert.Equal(t, 10.0, cfg.SpawnRate)
	assert.Equal(t, 120*time.Second, cfg.RunTime)
	assert.Equal(t, 30, cfg.TimeoutSec)
	assert.Equal(t, time.Second, cfg.WaitMin)
}

func TestRenderRuns(t *testing.T) {
	out := renderRuns([]storage.Run{{
		ID:        "0123456789abcdef",
		Timestamp: time.Now(),
		Config:    runner.Config{Host: "http://localhost:8080", NumUsers: 200},
		Summary:   report.Summary{TotalRequests: 1234, ErrorRate: 2.5, P95Ms: 41.2},
	}})

	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, "http://localhost:8080")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "1234")
	assert.Contains(t, out, "2.50%")
}
