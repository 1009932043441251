package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ExecRunner runs the Python filing parser as a subprocess. The parser
// prints one JSON document on stdout and logs diagnostics on stderr.
type ExecRunner struct {
	// Python is the interpreter binary, e.g. "python3".
	Python string
	// Script is the path to the parser script.
	Script string
}

// NewExecRunner creates a runner for the given parser script.
func NewExecRunner(python, script string) *ExecRunner {
	if python == "" {
		python = "python3"
	}
	return &ExecRunner{Python: python, Script: script}
}

// Run executes the parser and captures both streams. Stdout is capped at
// maxOutput bytes; exceeding the cap kills the process and fails with an
// error wrapping ErrBufferExceeded.
func (r *ExecRunner) Run(ctx context.Context, ticker, formType, year string, maxOutput int64) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, r.Python, r.Script, ticker, formType, year)

	stdout := &cappedBuffer{limit: maxOutput}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(err, errOutputCapExceeded) || stdout.exceeded {
			return stdout.buf.Bytes(), stderr.Bytes(), fmt.Errorf("%w: stdout exceeded %d bytes", ErrBufferExceeded, maxOutput)
		}
		// The parser exits zero even for logical failures; a non-zero
		// exit is a process-level problem. Diagnostics still matter to
		// the caller, so both streams are returned.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.buf.Bytes(), stderr.Bytes(), fmt.Errorf("parser exited with %d", exitErr.ExitCode())
		}
		return stdout.buf.Bytes(), stderr.Bytes(), err
	}

	return stdout.buf.Bytes(), stderr.Bytes(), nil
}

var errOutputCapExceeded = errors.New("output cap exceeded")

// cappedBuffer accumulates writes up to a byte limit, then fails the
// writing process.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int64
	exceeded bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(p)) > b.limit {
		b.exceeded = true
		return 0, errOutputCapExceeded
	}
	return b.buf.Write(p)
}
