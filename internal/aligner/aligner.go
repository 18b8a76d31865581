// Package aligner wraps the external multiple-sequence-alignment binary.
//
// The service never aligns anything itself: it hands an input path and an
// output path to whatever Aligner it was built with. Exec is the production
// implementation; Func lets tests and alternate engines plug in.
package aligner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	placeholderInput  = "{input}"
	placeholderOutput = "{output}"

	stderrTailBytes = 4 * 1024
	waitDelay       = 5 * time.Second
)

var (
	// ErrToolNotFound indicates the aligner executable is not on PATH.
	ErrToolNotFound = errors.New("aligner tool not found")

	// ErrInvocationFailed indicates the aligner ran but did not succeed.
	ErrInvocationFailed = errors.New("aligner invocation failed")
)

// Aligner turns the FASTA file at inputPath into an aligned FASTA file at
// outputPath.
type Aligner interface {
	Align(ctx context.Context, inputPath, outputPath string) error
	Name() string
}

// Func adapts a plain function to the Aligner interface.
type Func func(ctx context.Context, inputPath, outputPath string) error

// Align calls f.
func (f Func) Align(ctx context.Context, inputPath, outputPath string) error {
	return f(ctx, inputPath, outputPath)
}

// Name implements Aligner.
func (f Func) Name() string { return "func" }

// InvocationError describes an aligner run that exited non-zero, was killed,
// or produced no output.
type InvocationError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvocationFailed}
	}
	return []error{ErrInvocationFailed, e.Err}
}

// Exec runs an aligner executable resolved from PATH.
type Exec struct {
	tool     string
	args     []string
	timeout  time.Duration
	lookPath func(string) (string, error)
}

// NewExec builds an Exec for tool using an argument template such as
// "-align {input} -output {output}". A zero timeout disables the deadline.
func NewExec(tool, argsTemplate string, timeout time.Duration) (*Exec, error) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return nil, errors.New("aligner tool name is empty")
	}
	args, err := ParseArgs(argsTemplate)
	if err != nil {
		return nil, err
	}
	return &Exec{
		tool:     tool,
		args:     args,
		timeout:  timeout,
		lookPath: exec.LookPath,
	}, nil
}

// ParseArgs splits an argument template on whitespace and checks that both
// placeholders are present.
func ParseArgs(template string) ([]string, error) {
	args := strings.Fields(template)
	var hasIn, hasOut bool
	for _, arg := range args {
		hasIn = hasIn || strings.Contains(arg, placeholderInput)
		hasOut = hasOut || strings.Contains(arg, placeholderOutput)
	}
	if !hasIn || !hasOut {
		return nil, fmt.Errorf("aligner args %q must reference both %s and %s", template, placeholderInput, placeholderOutput)
	}
	return args, nil
}

// Name returns the configured tool name.
func (e *Exec) Name() string { return e.tool }

// Args returns the argument list for one invocation.
func (e *Exec) Args(inputPath, outputPath string) []string {
	r := strings.NewReplacer(placeholderInput, inputPath, placeholderOutput, outputPath)
	out := make([]string, len(e.args))
	for i, arg := range e.args {
		out[i] = r.Replace(arg)
	}
	return out
}

// Available reports whether the tool currently resolves on PATH.
func (e *Exec) Available() error {
	if _, err := e.lookPath(e.tool); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrToolNotFound, e.tool, err)
	}
	return nil
}

// Align runs the tool once and waits for it to exit.
func (e *Exec) Align(ctx context.Context, inputPath, outputPath string) error {
	path, err := e.lookPath(e.tool)
	if err != nil {
		return fmt.Errorf("%w: %q is not installed or not on PATH", ErrToolNotFound, e.tool)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	stderr := &tailBuffer{max: stderrTailBytes}
	cmd := exec.CommandContext(ctx, path, e.Args(inputPath, outputPath)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %q: %v", ErrToolNotFound, e.tool, err)
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		cause := err
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		}
		return &InvocationError{
			Tool:     e.tool,
			ExitCode: code,
			Stderr:   stderr.String(),
			Err:      cause,
		}
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return &InvocationError{
			Tool:     e.tool,
			ExitCode: 0,
			Stderr:   stderr.String(),
			Err:      errors.New("no output written"),
		}
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
