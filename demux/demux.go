// Package demux splits one decoded MessagePack-RPC stream into the three
// logical channels a peer needs: inbound requests, inbound responses and
// inbound notifications.
package demux

import (
	"context"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/xerrors"

	"github.com/ubnt-intrepid/msgpack-rpc-go/codec"
	"github.com/ubnt-intrepid/msgpack-rpc-go/message"
)

// readChunkSize is how much the demux tries to read from the upstream byte
// source per call; decoding proceeds on whatever has accumulated so far.
const readChunkSize = 4096

// Demux reads decoded frames from a byte stream and fans them out onto three
// typed channels. It holds at most one "in-flight" message at a time: if the
// chosen channel isn't ready to receive, the message is parked until it is,
// and no further upstream bytes are decoded in the meantime. This bounds
// demux memory to O(1) regardless of downstream pressure and preserves
// per-kind ordering.
type Demux struct {
	src    io.Reader
	dec    *codec.Decoder
	logger log.Logger

	Requests      chan *message.Request
	Responses     chan *message.Response
	Notifications chan *message.Notification
}

// New creates a Demux reading from src. chanCap sizes the three output
// channels (0 makes them unbuffered).
func New(src io.Reader, chanCap int, logger log.Logger) *Demux {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Demux{
		src:           src,
		dec:           codec.NewDecoder(),
		logger:        logger,
		Requests:      make(chan *message.Request, chanCap),
		Responses:     make(chan *message.Response, chanCap),
		Notifications: make(chan *message.Notification, chanCap),
	}
}

// Run drives the demux until the upstream byte source reaches EOF, a fatal
// decode/I/O error occurs, or ctx is cancelled. ctx is observed while a
// decoded message waits to be handed to its channel; a Read already blocked
// on src is not interrupted by cancellation and ends only when src returns.
//
// On clean EOF, Requests, Responses and Notifications are closed in that
// order and Run returns nil. On any other error, Run returns it without
// closing the channels — the connection's other components will observe
// their own shutdown independently.
func (d *Demux) Run(ctx context.Context) error {
	buf := make([]byte, readChunkSize)
	for {
		msg, ok, skipped, err := d.dec.DecodeInvalid()
		if err != nil {
			return xerrors.Errorf("demux: decode failed: %w", err)
		}
		for _, s := range skipped {
			level.Debug(d.logger).Log("event", "skipped invalid frame", "err", s)
		}
		if ok {
			if err := d.dispatch(ctx, msg); err != nil {
				return err
			}
			continue
		}

		n, rerr := d.src.Read(buf)
		if n > 0 {
			d.dec.Feed(buf[:n])
		}
		if rerr != nil {
			if rerr == io.EOF {
				d.closeAll()
				return nil
			}
			return xerrors.Errorf("demux: read failed: %w", rerr)
		}
	}
}

func (d *Demux) dispatch(ctx context.Context, msg message.Message) error {
	switch m := msg.(type) {
	case *message.Request:
		select {
		case d.Requests <- m:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case *message.Response:
		select {
		case d.Responses <- m:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case *message.Notification:
		select {
		case d.Notifications <- m:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return xerrors.Errorf("demux: unexpected message type %T", msg)
	}
}

func (d *Demux) closeAll() {
	close(d.Requests)
	close(d.Responses)
	close(d.Notifications)
}
