package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait drains output after the child is killed;
// grandchildren holding the pipes open would otherwise block it.
const waitDelay = 2 * time.Second

// Command is a fully resolved child process request.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Outcome is what an Executor observed. Err is nil only for a zero exit.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Started is false when the process never launched.
	Started bool
	Err     error
}

// Executor starts a command and waits for it to exit.
type Executor interface {
	Execute(ctx context.Context, cmd Command) Outcome
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) Outcome

func (f ExecutorFunc) Execute(ctx context.Context, cmd Command) Outcome {
	return f(ctx, cmd)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

// Execute starts cmd.Path with cmd.Args as a discrete argv.
func (OSExecutor) Execute(ctx context.Context, cmd Command) Outcome {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Start(); err != nil {
		return Outcome{ExitCode: -1, Err: err}
	}

	err := c.Wait()
	out := Outcome{
		Stdout:   decodeOutput(stdout.Bytes()),
		Stderr:   decodeOutput(stderr.Bytes()),
		ExitCode: c.ProcessState.ExitCode(),
		Started:  true,
		Err:      err,
	}
	// A cancelled context reports "signal: killed"; surface the cause.
	if err != nil && ctx.Err() != nil {
		out.Err = errors.Join(ctx.Err(), err)
	}
	return out
}
