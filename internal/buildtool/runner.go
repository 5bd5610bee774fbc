// Package buildtool wraps the PlatformIO command line tool. Every call is a
// single blocking invocation; failures degrade to empty data so an analysis
// never fails because the tool is missing or broken.
package buildtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/phuslu/log"
)

// DefaultTool is the executable used when none is configured.
const DefaultTool = "pio"

// ErrToolNotFound is returned when the build tool executable cannot be found.
var ErrToolNotFound = errors.New("build tool not found")

// CommandFunc builds the command to run. Tests replace it with a fake.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Runner invokes the build tool inside a project directory.
type Runner struct {
	tool        string
	dir         string
	timeout     time.Duration
	commandFunc CommandFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each invocation. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithCommandFunc replaces the command constructor.
func WithCommandFunc(fn CommandFunc) Option {
	return func(r *Runner) {
		r.commandFunc = fn
	}
}

// NewRunner creates a runner for tool, executed with dir as working directory.
func NewRunner(tool, dir string, opts ...Option) *Runner {
	if tool == "" {
		tool = DefaultTool
	}
	r := &Runner{
		tool:        tool,
		dir:         dir,
		commandFunc: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tool returns the executable name.
func (r *Runner) Tool() string {
	return r.tool
}

// run executes the tool and returns its captured output.
func (r *Runner) run(ctx context.Context, args ...string) (stdout, stderr []byte, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := r.commandFunc(ctx, r.tool, args...)
	if r.dir != "" {
		cmd.Dir = r.dir
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	start := time.Now()
	err = cmd.Run()
	log.Debug().Str("tool", r.tool).Strs("args", args).Dur("took", time.Since(start)).Msg("build tool finished")

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrToolNotFound, r.tool)
		}
		if ctx.Err() != nil {
			return outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("%s %v: %w", r.tool, args, ctx.Err())
		}
		if errBuf.Len() > 0 {
			return outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("%s %v failed: %w: %s", r.tool, args, err, bytes.TrimSpace(errBuf.Bytes()))
		}
		return outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("%s %v failed: %w", r.tool, args, err)
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// warn logs a degraded call.
func (r *Runner) warn(err error, what string) {
	log.Warn().Err(err).Str("tool", r.tool).Msgf("could not get %s, continuing without it", what)
}
