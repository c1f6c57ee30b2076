package runner

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/codepair/codepair/lib/exception"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Result holds the separately accumulated output streams of one execution.
type Result struct {
	Stdout string
	Stderr string
}

type Options struct {
	// Command is the interpreter binary, Arg the flag that accepts inline
	// source, so an execution becomes `Command Arg <code>`.
	Command        string
	Arg            string
	Timeout        time.Duration
	MaxOutputBytes int64
	MaxConcurrent  int64
}

// Runner executes untrusted code in one isolated interpreter process per
// call. Every call is independent; no state survives an execution.
type Runner struct {
	command   string
	arg       string
	timeout   time.Duration
	maxOutput int64
	sem       *semaphore.Weighted
	logger    *zap.SugaredLogger
}

func New(opts Options, logger *zap.SugaredLogger) *Runner {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = 1 << 20
	}
	return &Runner{
		command:   opts.Command,
		arg:       opts.Arg,
		timeout:   opts.Timeout,
		maxOutput: opts.MaxOutputBytes,
		sem:       semaphore.NewWeighted(opts.MaxConcurrent),
		logger:    logger,
	}
}

// Execute spawns one interpreter process for code and waits for it to finish.
//
// Any captured stderr marks the attempt as a program failure and is returned
// as a *exception.ProgramError alongside the captured streams. A process that
// cannot be spawned, exceeds the timeout or dies outside normal termination
// is a *exception.ProcessError and returns no Result.
func (r *Runner) Execute(ctx context.Context, code string) (*Result, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, exception.NewProcessError("execution slot unavailable", err)
	}
	defer r.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stdout := newCappedBuffer(r.maxOutput)
	stderr := newCappedBuffer(r.maxOutput)

	cmd := exec.CommandContext(ctx, r.command, r.arg, code)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	if ctx.Err() != nil {
		r.logger.Warnw("execution timed out", "command", r.command, "timeout", r.timeout)
		return nil, exception.NewProcessError("execution timed out", ctx.Err())
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Spawn or OS-level failure, distinct from the program writing to
		// stderr.
		r.logger.Errorw("interpreter process failed", "command", r.command, "error", err)
		return nil, exception.NewProcessError("could not run interpreter", err)
	}

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if result.Stderr != "" {
		return result, exception.NewProgramError(result.Stderr)
	}
	return result, nil
}
