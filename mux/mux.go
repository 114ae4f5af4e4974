// Package mux merges three outbound message channels onto one physical sink
// with fair interleaving and end-to-end backpressure.
package mux

import (
	"context"
	"io"

	"github.com/go-kit/kit/log"
	"golang.org/x/xerrors"

	"github.com/ubnt-intrepid/msgpack-rpc-go/codec"
	"github.com/ubnt-intrepid/msgpack-rpc-go/message"
)

// flusher is implemented by sinks (e.g. *bufio.Writer) that buffer writes
// and need an explicit nudge to surface them.
type flusher interface {
	Flush() error
}

// OutboundNotification pairs a notification with an optional ack signal.
// If Ack is non-nil, the Mux closes it the instant the notification's frame
// has actually been written to the sink — giving the sender a completion
// signal without blocking senders who don't ask for one.
type OutboundNotification struct {
	Msg *message.Notification
	Ack chan<- struct{}
}

// queued is the Mux's internal FIFO item: a message plus the ack channel to
// close after it's written, if any.
type queued struct {
	msg message.Message
	ack chan<- struct{}
}

// Mux reads from three upstream channels and writes onto one downstream
// sink. Each round it drains everything immediately available from the
// channels in a fixed order — request, response, notification — into an
// internal FIFO, then writes the FIFO out to the sink one message at a
// time. Starvation across the three upstreams is impossible because every
// round visits all three; ordering within a single channel is always
// preserved, but interleaving between channels is unspecified beyond the
// round.
type Mux struct {
	sink   io.Writer
	enc    *codec.Encoder
	logger log.Logger

	Requests      chan *message.Request
	Responses     chan *message.Response
	Notifications chan OutboundNotification
}

// New creates a Mux writing onto sink. chanCap sizes the three input
// channels (0 makes them unbuffered).
func New(sink io.Writer, chanCap int, logger log.Logger) *Mux {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Mux{
		sink:          sink,
		enc:           codec.NewEncoder(sink),
		logger:        logger,
		Requests:      make(chan *message.Request, chanCap),
		Responses:     make(chan *message.Response, chanCap),
		Notifications: make(chan OutboundNotification, chanCap),
	}
}

// Run drives the mux until all three upstream channels are closed and
// drained, ctx is cancelled, or a write to the sink fails.
func (m *Mux) Run(ctx context.Context) error {
	var fifo []queued
	var reqClosed, resClosed, notClosed bool

	for {
		// Drain everything immediately available, fixed order, fair round.
		for {
			progressed := false

			select {
			case r, ok := <-m.Requests:
				if !ok {
					m.Requests = nil
					reqClosed = true
				} else {
					fifo = append(fifo, queued{msg: r})
				}
				progressed = true
			default:
			}

			select {
			case r, ok := <-m.Responses:
				if !ok {
					m.Responses = nil
					resClosed = true
				} else {
					fifo = append(fifo, queued{msg: r})
				}
				progressed = true
			default:
			}

			select {
			case n, ok := <-m.Notifications:
				if !ok {
					m.Notifications = nil
					notClosed = true
				} else {
					fifo = append(fifo, queued{msg: n.Msg, ack: n.Ack})
				}
				progressed = true
			default:
			}

			if !progressed {
				break
			}
		}

		// Flush the FIFO: one frame to the sink at a time, front to back. A
		// failed write leaves no partial state to retry — the whole Encode
		// either wrote or it didn't.
		for len(fifo) > 0 {
			item := fifo[0]
			if err := m.enc.Encode(item.msg); err != nil {
				return xerrors.Errorf("mux: write failed: %w", err)
			}
			if item.ack != nil {
				close(item.ack)
			}
			fifo = fifo[1:]
		}
		if f, ok := m.sink.(flusher); ok {
			if err := f.Flush(); err != nil {
				return xerrors.Errorf("mux: flush failed: %w", err)
			}
		}

		if reqClosed && resClosed && notClosed {
			return m.closeSink()
		}

		// Nothing to do right now: block for the next arrival or closure.
		select {
		case r, ok := <-m.Requests:
			if !ok {
				m.Requests = nil
				reqClosed = true
			} else {
				fifo = append(fifo, queued{msg: r})
			}
		case r, ok := <-m.Responses:
			if !ok {
				m.Responses = nil
				resClosed = true
			} else {
				fifo = append(fifo, queued{msg: r})
			}
		case n, ok := <-m.Notifications:
			if !ok {
				m.Notifications = nil
				notClosed = true
			} else {
				fifo = append(fifo, queued{msg: n.Msg, ack: n.Ack})
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Mux) closeSink() error {
	if c, ok := m.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
