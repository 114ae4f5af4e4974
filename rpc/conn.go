// Package rpc assembles the message, codec, demux and mux packages into a
// bidirectional MessagePack-RPC endpoint: issue requests/notifications with
// Client, answer them with a Handler served by Endpoint.
package rpc

import (
	"context"
	"io"

	"github.com/go-kit/kit/log"
	"golang.org/x/sync/errgroup"

	"github.com/ubnt-intrepid/msgpack-rpc-go/demux"
	"github.com/ubnt-intrepid/msgpack-rpc-go/mux"
)

const defaultChannelCapacity = 64

// connection is the scheduler handle spec.md's construction surface refers
// to: every per-connection task — Demux, Mux, the Client's resolver, and
// the Endpoint's dispatch loop once Serve is called — runs on this same
// errgroup.Group, sharing one derived context. The first task to end, for
// any reason, cancels ctx and so tears down every other task.
type connection struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Option configures a connection built by NewEndpoint.
type Option func(*options)

type options struct {
	logger          log.Logger
	channelCapacity int
	maxConcurrent   int64
}

// WithLogger overrides the connection's logger (default: NewDefaultLogger).
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithChannelCapacity sets the buffer capacity shared by all six internal
// channels (three inbound, three outbound). The default, 64, matches the
// recommended production default: small bounded buffers on every channel
// give end-to-end backpressure without unbounded memory growth.
func WithChannelCapacity(n int) Option {
	return func(o *options) { o.channelCapacity = n }
}

// WithMaxConcurrentHandlers bounds how many Handler goroutines may run at
// once for inbound requests and notifications combined.
func WithMaxConcurrentHandlers(n int64) Option {
	return func(o *options) { o.maxConcurrent = n }
}

// NewEndpoint wires a Client and an Endpoint around a duplex byte stream.
// ctx is the scheduler handle: cancelling it tears the connection down.
// The Client is immediately usable. Call Endpoint.Serve(handler) to start
// answering inbound requests and notifications; Serve blocks until the
// connection ends, driving every internal task (Demux, Mux, the Client's
// resolver, and the dispatcher) to completion first.
func NewEndpoint(ctx context.Context, stream io.ReadWriteCloser, opts ...Option) (*Client, *Endpoint) {
	o := &options{
		logger:          NewDefaultLogger(),
		channelCapacity: defaultChannelCapacity,
	}
	for _, opt := range opts {
		opt(o)
	}

	derived, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(derived)
	conn := &connection{ctx: gctx, cancel: cancel, group: g}

	d := demux.New(stream, o.channelCapacity, o.logger)
	m := mux.New(stream, o.channelCapacity, o.logger)

	client := newClient(m.Requests, m.Notifications, o.logger)
	endpoint := newEndpoint(conn, client, d.Requests, d.Notifications, m.Responses, o.logger, o.maxConcurrent)

	g.Go(func() error {
		defer cancel()
		return d.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return m.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return client.runResolver(gctx, d.Responses)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Closing the stream unblocks a Demux read in progress.
		stream.Close()
		client.closeOutbound()
		return nil
	})

	return client, endpoint
}
