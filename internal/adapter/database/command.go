package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/semmidev/pgkeeper/internal/domain"
)

type Command struct {
	Name    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes an external tool. A nonzero exit is reported through
// Result.ExitCode together with an error wrapping domain.ErrToolFailed.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if _, err := exec.LookPath(c.Name); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s", domain.ErrToolNotFound, c.Name)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{ExitCode: cmd.ProcessState.ExitCode(), Stdout: stdout.String(), Stderr: stderr.String()}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w: %s after %s", domain.ErrTimeout, c.Name, c.Timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, fmt.Errorf("%w: %s exited with code %d: %s", domain.ErrToolFailed, c.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		return res, fmt.Errorf("%w: %s: %v", domain.ErrToolFailed, c.Name, err)
	}
	return res, nil
}
