// Package debug provides verbose/quiet gated output and the project event log.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	enabled     = os.Getenv("CHISEL_DEBUG") != ""
	verboseMode = false
	quietMode   = false
	logMutex    sync.Mutex

	// eventDir is the directory holding events.log; empty disables LogEvent.
	eventDir string
	actor    string
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// SetEventLog points LogEvent at <dir>/events.log and records the actor
// written into each entry. An empty dir disables the event log.
func SetEventLog(dir, who string) {
	logMutex.Lock()
	defer logMutex.Unlock()
	eventDir = dir
	actor = who
}

func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

func Printf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Printf(format, args...)
	}
}

// PrintNormal prints output unless quiet mode is enabled
// Use this for normal informational output that should be suppressed in quiet mode
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}

// PrintlnNormal prints a line unless quiet mode is enabled
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Println(args...)
	}
}

// Event codes written to events.log
const (
	EventTaskCreated    = "task.created"
	EventTaskClosed     = "task.closed"
	EventTaskReopened   = "task.reopened"
	EventHookFailed     = "hook.failed"
	EventRollupUpdated  = "rollup.updated"
	EventTaskDecomposed = "task.decomposed"
)

// LogEvent appends an entry to events.log.
// Format: TIMESTAMP|EVENT_CODE|TASK_ID|ACTOR|DETAILS
func LogEvent(eventCode, taskID, details string) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if eventDir == "" {
		return
	}
	if taskID == "" {
		taskID = "none"
	}
	who := actor
	if who == "" {
		who = "unknown"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	// Details must stay on one line.
	details = strings.ReplaceAll(details, "\n", " ")
	entry := fmt.Sprintf("%s|%s|%s|%s|%s\n", timestamp, eventCode, taskID, who, details)

	if err := os.MkdirAll(eventDir, 0o750); err != nil {
		return
	}
	file, err := os.OpenFile(filepath.Join(eventDir, "events.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		// Silent fail - don't interrupt operations if logging fails
		return
	}
	defer file.Close()

	_, _ = file.WriteString(entry)
}
