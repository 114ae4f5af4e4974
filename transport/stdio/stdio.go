// Package stdio adapts a pair of blocking byte streams — typically the
// process's standard input and output — into a single io.ReadWriteCloser,
// the way a connection built by rpc.NewEndpoint expects. It is
// illustrative and auxiliary, not part of the core
// message/codec/demux/mux/rpc packages.
package stdio

import (
	"io"
	"os"
	"sync"
)

// DefaultChunkSize is how many bytes the reader goroutine tries to read
// per call before forwarding them to the connection.
const DefaultChunkSize = 4096

// Stream bridges blocking reads on in onto a channel so the rest of the
// connection never calls a blocking syscall directly: in is read on a
// dedicated goroutine and forwarded through a bounded channel, the
// "thread-bridged stdin" shape the core's cooperative scheduling model
// assumes transports provide — there are no blocking syscalls in Demux or
// Mux themselves. Writes go straight to out from the caller's goroutine
// (the Mux task), which is safe since Mux is the sole writer.
type Stream struct {
	out io.Writer

	chunks    chan []byte
	readErr   chan error
	closeOnce sync.Once
	closed    chan struct{}

	buf []byte
}

// New starts a goroutine reading from in in chunkSize pieces (0 means one
// line at a time) and returns a Stream that writes to out.
func New(in io.Reader, out io.Writer, chunkSize int) *Stream {
	s := &Stream{
		out:     out,
		chunks:  make(chan []byte, 4),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
	if chunkSize <= 0 {
		go s.readLinesLoop(in)
	} else {
		go s.readLoop(in, chunkSize)
	}
	return s
}

// NewStdio is the production entry point: bridges os.Stdin/os.Stdout.
func NewStdio(chunkSize int) *Stream {
	return New(os.Stdin, os.Stdout, chunkSize)
}

func (s *Stream) readLoop(in io.Reader, chunkSize int) {
	buf := make([]byte, chunkSize)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			select {
			case s.readErr <- err:
			case <-s.closed:
			}
			return
		}
	}
}

// readLinesLoop is the legacy one-line-at-a-time mode: each forwarded
// chunk is exactly one line, newline included. A binary frame containing
// 0x0a is therefore forwarded as several chunks; the codec accumulates
// bytes across reads, so this changes how reads are sliced, not what is
// decoded.
func (s *Stream) readLinesLoop(in io.Reader) {
	reader := newLineReader(in)
	for {
		line, err := reader.ReadLine()
		if len(line) > 0 {
			select {
			case s.chunks <- line:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			select {
			case s.readErr <- err:
			case <-s.closed:
			}
			return
		}
	}
}

// Read implements io.Reader, pulling from the bridge channel rather than
// the underlying reader directly.
func (s *Stream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return 0, io.EOF
			}
			s.buf = chunk
		case err := <-s.readErr:
			// The reader goroutine queues every chunk before its error, so
			// deliver any chunk still buffered first and keep the error.
			select {
			case chunk := <-s.chunks:
				s.buf = chunk
				s.readErr <- err
			default:
				return 0, err
			}
		case <-s.closed:
			return 0, io.ErrClosedPipe
		}
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Close stops the reader goroutine. It does not close the underlying
// reader/writer — the caller owns those (e.g. os.Stdin/os.Stdout should
// never be closed).
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// lineReader is a tiny bufio.Reader-alike kept local to avoid pulling in
// bufio just for ReadLine semantics that preserve the trailing newline.
type lineReader struct {
	r   io.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader { return &lineReader{r: r} }

func (lr *lineReader) ReadLine() ([]byte, error) {
	tmp := make([]byte, 1)
	for {
		for i, b := range lr.buf {
			if b == '\n' {
				line := lr.buf[:i+1]
				lr.buf = lr.buf[i+1:]
				return line, nil
			}
		}
		n, err := lr.r.Read(tmp)
		if n > 0 {
			lr.buf = append(lr.buf, tmp[:n]...)
		}
		if err != nil {
			line := lr.buf
			lr.buf = nil
			return line, err
		}
	}
}
