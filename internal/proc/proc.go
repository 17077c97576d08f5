// Package proc runs short-lived external programs (template renderer,
// loaders, stylesheet compiler) in their own process group, with bounded
// output and cancellation that reaches child processes.
package proc

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrOutputTooLarge is returned when stdout exceeds Spec.MaxOutput.
var ErrOutputTooLarge = stderrors.New("output exceeds buffer limit")

// gracePeriod is how long a cancelled process group gets before SIGKILL.
const gracePeriod = 2 * time.Second

// Spec describes one program invocation.
type Spec struct {
	Name string
	Args []string
	Dir  string

	// Env is appended to the current environment.
	Env []string

	// MaxOutput bounds stdout in bytes. Zero means unbounded.
	MaxOutput int
}

// Output is what a finished program wrote.
type Output struct {
	Stdout   []byte
	Stderr   string
	Duration time.Duration
}

// ExitError is a non-zero exit with the program's stderr attached.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := e.Name + " exited with status " + strconv.Itoa(e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Run starts the program, waits for it and returns its output. A cancelled
// ctx terminates the whole process group.
func Run(parent context.Context, spec Spec) (Output, error) {
	start := time.Now()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	limited := &limitWriter{buf: &stdout, limit: spec.MaxOutput}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	limited.onOverflow = cancel

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = limited
	cmd.Stderr = &stderr
	cmd.WaitDelay = gracePeriod
	configure(cmd)

	if err := cmd.Start(); err != nil {
		return Output{Duration: time.Since(start)}, err
	}
	handle := attach(cmd)
	err := cmd.Wait()
	release(handle)

	out := Output{
		Stdout:   stdout.Bytes(),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	switch {
	case limited.overflow:
		return out, ErrOutputTooLarge
	case err == nil:
		return out, nil
	case parent.Err() != nil:
		return out, parent.Err()
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return out, &ExitError{Name: spec.Name, Code: exitErr.ExitCode(), Stderr: out.Stderr}
	}
	return out, err
}

type limitWriter struct {
	buf        *bytes.Buffer
	limit      int
	overflow   bool
	onOverflow func()
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.overflow {
		return len(p), nil
	}
	if w.limit > 0 && w.buf.Len()+len(p) > w.limit {
		w.overflow = true
		w.onOverflow()
		return len(p), nil
	}
	return w.buf.Write(p)
}
