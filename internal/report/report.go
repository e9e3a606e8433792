package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"labload/internal/runner"
)

// ExportCSV exports results to a JMeter-compatible CSV file.
// Schema: timeStamp,elapsed,label,responseCode,responseMessage,threadName,success,failureMessage,bytes,URL
func ExportCSV(results []runner.Result, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
		"threadName", "success", "failureMessage", "bytes", "URL",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		failure := res.Message
		if res.Error != "" {
			failure = res.Error
		}

		record := []string{
			strconv.FormatInt(res.TimeStamp.UnixMilli(), 10),
			strconv.FormatInt(res.Latency.Milliseconds(), 10),
			res.Name,
			strconv.Itoa(res.Status),
			http.StatusText(res.Status),
			"User-" + res.UserID,
			strconv.FormatBool(res.Success),
			failure,
			strconv.FormatInt(res.Bytes, 10),
			res.URL,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ExportJSON exports results to a JSON file.
func ExportJSON(results []runner.Result, filename string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

type Summary struct {
	Host          string         `json:"host"`
	Users         int            `json:"users"`
	TotalRequests uint64         `json:"total_requests"`
	Success       uint64         `json:"success"`
	Fail          uint64         `json:"fail"`
	ErrorRate     float64        `json:"error_rate_pct"`
	RPS           float64        `json:"rps"`
	AvgMs         float64        `json:"avg_ms"`
	P50Ms         float64        `json:"p50_ms"`
	P95Ms         float64        `json:"p95_ms"`
	P99Ms         float64        `json:"p99_ms"`
	MaxMs         int64          `json:"max_ms"`
	StatusCodes   map[string]int `json:"status_codes"`
	Failures      map[string]int `json:"failures"`
}

// Summarize builds the run summary from a finished runner.
func Summarize(r *runner.Runner) Summary {
	snap := r.Snapshot()
	s := Summary{
		Host:          r.Cfg.Host,
		Users:         r.Cfg.NumUsers,
		TotalRequests: snap.Requests,
		Success:       snap.Success,
		Fail:          snap.Fail,
		ErrorRate:     r.Stats.ErrorRate(),
		AvgMs:         snap.MeanMs,
		P50Ms:         snap.P50Ms,
		P95Ms:         snap.P95Ms,
		P99Ms:         snap.P99Ms,
		MaxMs:         snap.MaxMs,
		StatusCodes:   make(map[string]int, len(snap.StatusCodes)),
		Failures:      snap.ErrorCounts,
	}
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		s.RPS = float64(snap.Requests) / secs
	}
	for code, n := range snap.StatusCodes {
		s.StatusCodes[strconv.Itoa(code)] = n
	}
	return s
}

// ExportSummary writes <prefix>_summary.json.
func ExportSummary(s Summary, prefix string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(prefix+"_summary.json", data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ExportAll writes <prefix>.csv, <prefix>.json and <prefix>_summary.json.
func ExportAll(r *runner.Runner, prefix string) error {
	results := r.ResultsCopy()
	if err := ExportCSV(results, prefix+".csv"); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if err := ExportJSON(results, prefix+".json"); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	return ExportSummary(Summarize(r), prefix)
}
