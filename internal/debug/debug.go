// Package debug prints per-invocation timing lines when --debug is set and
// keeps them for an end-of-run summary.
package debug

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	enabled bool
	out     io.Writer = color.Output
	mu      sync.Mutex
	logs    []LogEntry
)

type LogEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	Tool      string        `json:"tool"`
	Args      string        `json:"args"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Lines     int           `json:"lines"`
}

// Enable turns on debug logging
func Enable() {
	mu.Lock()
	enabled = true
	mu.Unlock()
}

// SetOutput redirects debug lines, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// Reset disables logging and drops collected entries.
func Reset() {
	mu.Lock()
	enabled = false
	logs = nil
	out = color.Output
	mu.Unlock()
}

func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// LogStart logs the start of a tool execution
func LogStart(tool string, args []string) time.Time {
	start := time.Now()
	if !IsEnabled() {
		return start
	}
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(writer(), "    [DEBUG %s] START: %s %s\n", start.Format("15:04:05.000"), tool, strings.Join(args, " "))
	return start
}

// LogEnd logs the completion of a tool execution
func LogEnd(tool string, args []string, start time.Time, err error, outputLines int) {
	if !IsEnabled() {
		return
	}
	duration := time.Since(start)
	end := time.Now()

	status := "OK"
	statusColor := color.New(color.FgGreen)
	if err != nil {
		status = fmt.Sprintf("ERROR: %v", err)
		statusColor = color.New(color.FgRed)
	}

	w := writer()
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(w, "    [DEBUG %s] END:   %s ", end.Format("15:04:05.000"), tool)
	statusColor.Fprintf(w, "%s", status)
	gray.Fprintf(w, " (duration: %s, output: %d lines)\n", duration.Round(time.Millisecond), outputLines)

	mu.Lock()
	logs = append(logs, LogEntry{
		Timestamp: end,
		Tool:      tool,
		Args:      strings.Join(args, " "),
		Duration:  duration,
		Status:    status,
		Lines:     outputLines,
	})
	mu.Unlock()
}

// LogRecord logs where an invocation was persisted
func LogRecord(tool, id, status string) {
	if !IsEnabled() {
		return
	}
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(writer(), "    [DEBUG %s] SAVED: %s %s (%s)\n", time.Now().Format("15:04:05.000"), tool, id, status)
}

// Summary prints a summary of all tool executions
func Summary() {
	entries := GetLogs()
	if !IsEnabled() || len(entries) == 0 {
		return
	}

	w := writer()
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(w)
	cyan.Fprintln(w, "═══════════════════════════════════════════════════════")
	cyan.Fprintln(w, "                    DEBUG SUMMARY")
	cyan.Fprintln(w, "═══════════════════════════════════════════════════════")

	var total time.Duration
	for _, l := range entries {
		mark := "✓"
		if strings.HasPrefix(l.Status, "ERROR") {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %-20s %10s %6d lines\n", mark, l.Tool, l.Duration.Round(time.Millisecond), l.Lines)
		total += l.Duration
	}

	fmt.Fprintln(w, "───────────────────────────────────────────────────────")
	fmt.Fprintf(w, "  Total tool execution time: %s\n", total.Round(time.Millisecond))
	fmt.Fprintf(w, "  Tools executed: %d\n", len(entries))
	cyan.Fprintln(w, "═══════════════════════════════════════════════════════")
}

// GetLogs returns all logged entries
func GetLogs() []LogEntry {
	mu.Lock()
	defer mu.Unlock()
	return append([]LogEntry{}, logs...)
}
