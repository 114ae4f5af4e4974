package rpc

import (
	"context"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/sync/semaphore"

	"github.com/ubnt-intrepid/msgpack-rpc-go/message"
)

// defaultMaxConcurrentHandlers bounds how many request/notification
// handler goroutines may run at once per connection, generalizing the
// teacher's unbounded per-request goroutine into a resource-bounded one.
const defaultMaxConcurrentHandlers = 256

// Endpoint pairs inbound requests and notifications with a Handler and
// returns responses onto the outbound-response channel. It is the
// "responder" half of a connection; Client is the "issuer" half. Endpoint
// is produced by NewEndpoint alongside its Client and shares the same
// connection-wide scheduler handle.
type Endpoint struct {
	client *Client
	logger log.Logger
	sem    *semaphore.Weighted
	conn   *connection

	requests      <-chan *message.Request
	notifications <-chan *message.Notification
	responses     chan<- *message.Response
}

func newEndpoint(conn *connection, client *Client, requests <-chan *message.Request, notifications <-chan *message.Notification, responses chan<- *message.Response, logger log.Logger, maxConcurrent int64) *Endpoint {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentHandlers
	}
	return &Endpoint{
		client:        client,
		logger:        logger,
		sem:           semaphore.NewWeighted(maxConcurrent),
		conn:          conn,
		requests:      requests,
		notifications: notifications,
		responses:     responses,
	}
}

// Client returns the Client embedded in this connection — the same value
// returned alongside this Endpoint by NewEndpoint.
func (e *Endpoint) Client() *Client { return e.client }

// Serve spawns the dispatcher task, which serves both inbound requests and
// inbound notifications, onto the connection's shared scheduler handle and
// blocks until the connection
// ends: upstream EOF, a fatal decode error, or ctx cancellation. It must be
// called exactly once.
//
// Multiple in-flight requests are permitted: pulled requests are not
// awaited serially, each completion is spawned so the request task returns
// immediately to pulling. Response order therefore matches completion
// order, not arrival order — ids carry the correlation, not position.
func (e *Endpoint) Serve(handler Handler) error {
	e.conn.group.Go(func() error {
		defer e.conn.cancel()
		return e.dispatch(e.conn.ctx, handler)
	})
	return e.conn.group.Wait()
}

func (e *Endpoint) dispatch(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(e.responses)
	}()

	for {
		select {
		case req, ok := <-e.requests:
			if !ok {
				e.requests = nil
				if e.notifications == nil {
					return nil
				}
				continue
			}
			e.spawnRequest(ctx, &wg, handler, req)

		case not, ok := <-e.notifications:
			if !ok {
				e.notifications = nil
				if e.requests == nil {
					return nil
				}
				continue
			}
			e.spawnNotification(ctx, &wg, handler, not)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Endpoint) spawnRequest(ctx context.Context, wg *sync.WaitGroup, handler Handler, req *message.Request) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		// ctx died before a slot freed up; nothing left to do but drop.
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer e.sem.Release(1)

		result, err := handler.HandleRequest(ctx, e.client, req.Method, req.Params)
		resp := &message.Response{Id: req.Id}
		if err != nil {
			resp.Err = errValue(err)
		} else {
			resp.Result = result
		}

		select {
		case e.responses <- resp:
		case <-ctx.Done():
			// Connection is tearing down; the response has nowhere to go.
			level.Debug(e.logger).Log("event", "response dropped on shutdown", "id", req.Id, "method", req.Method)
		}
	}()
}

func (e *Endpoint) spawnNotification(ctx context.Context, wg *sync.WaitGroup, handler Handler, not *message.Notification) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer e.sem.Release(1)
		handler.HandleNotification(ctx, e.client, not.Method, not.Params)
	}()
}

// errValue turns a Go error into the wire Value carried in a Response's
// error slot. A *RemoteError unwraps back to its original Value (round
// -tripping a peer's error through a nested call); anything else becomes
// its string form, which is all MessagePack-RPC errors ever were on the
// wire to begin with.
func errValue(err error) interface{} {
	if re, ok := err.(*RemoteError); ok {
		return re.Value
	}
	return err.Error()
}
