// Package hooks runs the shell commands registered for a lifecycle event and
// aggregates their outcome.
//
// Process spawning sits behind the Executor interface; the Pipeline only
// orders hooks, fans them out and reassembles results.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single hook command.
const DefaultTimeout = 300 * time.Second

// TaskIDEnv names the variable carrying the active task id.
const TaskIDEnv = "CHISEL_TASK_ID"

// EventEnv names the variable carrying the event being run.
const EventEnv = "CHISEL_HOOK_EVENT"

// Command is one shell invocation.
type Command struct {
	Line    string        // interpreted by the shell
	Env     []string      // KEY=VALUE pairs added to the inherited environment
	Dir     string        // working directory; empty means the current one
	Timeout time.Duration // zero means DefaultTimeout
}

// ExecResult is the captured outcome of a Command. Spawn failures and
// timeouts are reported here, never as a Go error.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Success reports whether the command exited 0.
func (r ExecResult) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Executor runs commands.
type Executor interface {
	Execute(ctx context.Context, cmd Command) ExecResult
}

// ShellExecutor runs commands through the platform shell. On unix the
// command gets its own process group so a timeout kills its descendants too.
type ShellExecutor struct{}

// NewShellExecutor returns the default process-spawning Executor.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

// Execute implements Executor.
func (ShellExecutor) Execute(parent context.Context, c Command) ExecResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	cmd := shellCommand(c.Line)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	// Bound the wait for output pipes held open by stray descendants.
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		return ExecResult{
			ExitCode: -1,
			Stderr:   fmt.Sprintf("failed to start command: %v", err),
			Duration: time.Since(start),
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		res := ExecResult{
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}
		if res.Stderr != "" {
			res.Stderr += "\n"
		}
		// Only our own deadline counts as a timeout; a cancelled caller is not.
		if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			res.Stderr += "Command timed out after " + timeout.String()
		} else {
			res.Stderr += fmt.Sprintf("Command cancelled: %v", context.Cause(parent))
		}
		return res
	case err := <-done:
		res := ExecResult{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}
		if err != nil {
			res.ExitCode = exitCode(err)
			if res.ExitCode == -1 && res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
		return res
	}
}

func exitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return -1
}
