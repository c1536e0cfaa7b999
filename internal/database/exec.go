package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// waitDelay caps how long Wait blocks on I/O after the process is killed.
	waitDelay = 5 * time.Second
	// maxStderr is how much trailing stderr ends up in an error.
	maxStderr = 4 << 10
)

// command is a single external tool invocation. The tool is always started
// directly with argv; nothing is interpreted by a shell.
type command struct {
	tool   string
	args   []string
	env    []string
	stdin  io.Reader
	stdout io.Writer
}

// run executes c under the configured timeout. Failures are wrapped with
// failure; a timeout additionally matches ErrTimeout.
func (s settings) run(ctx context.Context, failure error, c command) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, s.timeout, ErrTimeout)
		defer cancel()
	}

	bin := s.binary(c.tool)
	cmd := exec.CommandContext(ctx, bin, c.args...)
	cmd.Env = append(os.Environ(), c.env...)
	cmd.Stdin = c.stdin
	cmd.Stdout = c.stdout
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return fmt.Errorf("%w: %s: %w", failure, c.tool, cause)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d: %s",
				failure, c.tool, exitErr.ExitCode(), tail(stderr.String()))
		}
		return fmt.Errorf("%w: %s: %w", failure, c.tool, err)
	}

	s.log.Debug("command finished",
		"tool", filepath.Base(bin),
		"duration", time.Since(start).String(),
	)
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}
	if s == "" {
		return "no output"
	}
	return s
}

// toFile runs c with stdout redirected into path. The file is removed again if
// the command fails.
func (s settings) toFile(ctx context.Context, failure error, path string, c command) (err error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create %q: %w", failure, path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %q: %w", failure, path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	c.stdout = out
	return s.run(ctx, failure, c)
}

// fromFile runs c with stdin fed from path.
func (s settings) fromFile(ctx context.Context, failure error, path string, c command) error {
	in, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w: %s", failure, ErrFileNotFound, path)
		}
		return fmt.Errorf("%w: open %q: %w", failure, path, err)
	}
	defer in.Close()

	c.stdin = in
	return s.run(ctx, failure, c)
}
