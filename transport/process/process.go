// Package process spawns a subprocess and wires its stdout as the
// connection's input byte stream and its stdin as the output sink, the
// illustrative child-process transport named in the core's external
// interfaces. It is auxiliary, not part of the core library.
package process

import (
	"context"
	"io"
	"os"
	"os/exec"

	"golang.org/x/xerrors"
)

// Stream is an io.ReadWriteCloser backed by a running subprocess's stdin
// and stdout pipes.
type Stream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// Start launches name with args, connecting its stdout/stdin as the
// returned Stream. The subprocess's stderr is left attached to this
// process's stderr, following the teacher's own preference for visible
// diagnostic output over swallowed pipes.
func Start(ctx context.Context, name string, args ...string) (*Stream, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, xerrors.Errorf("process: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, xerrors.Errorf("process: stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, xerrors.Errorf("process: start %q: %w", name, err)
	}

	tunePipeBuffer(stdout)

	return &Stream{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

func (s *Stream) Read(p []byte) (int, error)  { return s.stdout.Read(p) }
func (s *Stream) Write(p []byte) (int, error) { return s.stdin.Write(p) }

// Close closes the subprocess's stdin (signalling it no input is
// coming), then waits for it to exit.
func (s *Stream) Close() error {
	if err := s.stdin.Close(); err != nil {
		return err
	}
	return s.cmd.Wait()
}
