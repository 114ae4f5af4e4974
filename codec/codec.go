// Package codec frames message.Message values onto and off of a duplex byte
// stream. It is tolerant of partial frames (asks for more bytes) and of
// malformed frames (skips past them and keeps scanning) — a single corrupt
// packet on the wire can never wedge the connection.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ubnt-intrepid/msgpack-rpc-go/message"
)

// Decoder accumulates bytes fed to it and peels well-formed messages off the
// front. It is not safe for concurrent use.
type Decoder struct {
	buf bytes.Buffer
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends p to the decoder's internal buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf.Write(p)
}

// Buffered reports how many undecoded bytes are currently held.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// Decode attempts to produce the next message.
//
//   - (msg, true, nil): a message was decoded and consumed from the buffer.
//   - (nil, false, nil): not enough bytes are buffered yet; call Feed and
//     retry. The buffer is left untouched.
//   - (nil, false, err): a fatal, non-recoverable error (bad I/O or
//     unparseable bytes); the connection should be closed.
//
// Malformed-but-parseable frames are never returned as errors from Decode:
// Decode silently skips them and continues scanning within the same call,
// per the codec's resume-on-invalid contract. Use DecodeInvalid if the
// caller wants to observe skipped frames (e.g. for logging) instead of
// Decode.
func (d *Decoder) Decode() (msg message.Message, ok bool, err error) {
	msg, ok, _, err = d.decode(nil)
	return msg, ok, err
}

// DecodeInvalid is like Decode but also reports every invalid frame it had
// to skip over before producing msg (or running out of buffered bytes). This
// lets a caller log skipped frames without losing the resume-and-continue
// behavior required by the spec.
func (d *Decoder) DecodeInvalid() (msg message.Message, ok bool, skipped []error, err error) {
	return d.decode(&skipped)
}

func (d *Decoder) decode(collectInvalid *[]error) (message.Message, bool, []error, error) {
	for {
		if d.buf.Len() == 0 {
			return nil, false, derefOrNil(collectInvalid), nil
		}

		cr := &countingReader{r: bytes.NewReader(d.buf.Bytes())}
		dec := msgpack.NewDecoder(cr)
		m, derr := message.Decode(dec)

		if derr == nil {
			d.buf.Next(cr.n)
			return m, true, derefOrNil(collectInvalid), nil
		}

		if errors.Is(derr, message.ErrTruncated) {
			// leave buf untouched; caller needs to feed more bytes.
			return nil, false, derefOrNil(collectInvalid), nil
		}

		if message.IsInvalid(derr) {
			if cr.n == 0 {
				// Defensive: a conforming message.Decode always consumes at
				// least one byte before reporting Invalid. If it somehow
				// didn't, treat it as fatal rather than spin forever.
				return nil, false, derefOrNil(collectInvalid), fmt.Errorf("codec: invalid frame consumed no bytes: %w", derr)
			}
			d.buf.Next(cr.n)
			if collectInvalid != nil {
				*collectInvalid = append(*collectInvalid, derr)
			}
			continue
		}

		// Unknown/fatal: underlying I/O failure or unparseable bytes.
		return nil, false, derefOrNil(collectInvalid), derr
	}
}

func derefOrNil(s *[]error) []error {
	if s == nil {
		return nil
	}
	return *s
}

// countingReader tracks how many bytes have been read so the decoder knows
// exactly how far to advance its buffer.
type countingReader struct {
	r *bytes.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// ReadByte and UnreadByte make countingReader an io.ByteScanner, so the
// msgpack decoder reads from it directly instead of through a read-ahead
// bufio.Reader that would inflate n past the end of the decoded value.
func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

func (c *countingReader) UnreadByte() error {
	err := c.r.UnreadByte()
	if err == nil {
		c.n--
	}
	return err
}

// Encoder writes messages verbatim onto an io.Writer; there is no framing
// beyond the MessagePack array each message already is.
type Encoder struct {
	enc *msgpack.Encoder
	w   io.Writer
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: msgpack.NewEncoder(w), w: w}
}

// Encode writes msg's wire form to the underlying writer.
func (e *Encoder) Encode(msg message.Message) error {
	return message.Encode(e.enc, msg)
}
