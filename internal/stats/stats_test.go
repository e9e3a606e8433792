package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsAdd(t *testing.T) {
	s := NewStats()

	s.Add(true, 200, 10, 5*time.Millisecond, "")
	s.Add(true, 200, 10, 15*time.Millisecond, "")
	s.Add(false, 503, 19, 40*time.Millisecond, "Get the homepage failed with status 503")
	s.Add(false, 0, 0, time.Second, "Get the homepage failed with status 0")

	assert.Equal(t, uint64(4), s.Requests)
	assert.Equal(t, uint64(2), s.Success)
	assert.Equal(t, uint64(2), s.Fail)
	assert.Equal(t, uint64(39), s.Bytes)
	assert.InDelta(t, 50.0, s.ErrorRate(), 0.001)

	assert.Equal(t, map[int]int{200: 2, 503: 1, 0: 1}, s.GetStatusCodes())
	assert.Equal(t, map[string]int{
		"Get the homepage failed with status 503": 1,
		"Get the homepage failed with status 0":   1,
	}, s.GetErrorCounts())

	assert.InDelta(t, 1000.0, float64(s.MaxMs()), 1.0)
	assert.InDelta(t, 15.0, s.GetP50(), 0.1)
	assert.Greater(t, s.GetP99(), s.GetP50())
}

func TestStatsReset(t *testing.T) {
	s := NewStats()
	s.Add(false, 500, 1, time.Millisecond, "boom")
	s.Reset()

	assert.Zero(t, s.Requests)
	assert.Zero(t, s.Fail)
	assert.Zero(t, s.ResponseTime.TotalCount())
	assert.Empty(t, s.GetStatusCodes())
	assert.Empty(t, s.GetErrorCounts())
	assert.Zero(t, s.ErrorRate())
}

func TestStatsConcurrentAdd(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Add(j%2 == 0, 200, 1, time.Millisecond, "x")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(800), s.Requests)
	assert.Equal(t, uint64(400), s.Success)
	assert.Equal(t, int64(800), s.ResponseTime.TotalCount())
}

func TestHistogramClamps(t *testing.T) {
	h := NewSafeHistogram()
	assert.NoError(t, h.Record(0))
	assert.NoError(t, h.Record(time.Hour))
	assert.Equal(t, int64(2), h.TotalCount())
	assert.Equal(t, int64(1), h.Min())
}
