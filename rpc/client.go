package rpc

import (
	"context"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/ubnt-intrepid/msgpack-rpc-go/message"
	"github.com/ubnt-intrepid/msgpack-rpc-go/mux"
)

// Client issues outbound requests and notifications and resolves pending
// responses by id. It is safe for concurrent use by many goroutines — the
// direct analogue of the teacher's *Conn being shared across callers — and
// stays usable for the lifetime of the connection; there is no separate
// "clone" step.
type Client struct {
	logger log.Logger

	mu       sync.Mutex
	nextID   uint32
	pending  map[uint32]chan pendingResult
	closed   bool
	closeErr error
	inFlight sync.WaitGroup
	closeOne sync.Once

	requests      chan<- *message.Request
	notifications chan<- mux.OutboundNotification
}

type pendingResult struct {
	value interface{}
	err   error
}

func newClient(requests chan<- *message.Request, notifications chan<- mux.OutboundNotification, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		logger:        logger,
		pending:       make(map[uint32]chan pendingResult),
		requests:      requests,
		notifications: notifications,
	}
}

// Call issues a request and blocks until the matching response arrives, ctx
// is done, or the connection closes. The returned error is a *RemoteError
// when the peer's handler replied with an error value, or
// ErrConnectionClosed if the connection went away before a response could
// be matched.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (interface{}, error) {
	id, ch, err := c.register()
	if err != nil {
		return nil, err
	}

	if !c.beginSend() {
		c.removePending(id)
		return nil, ErrConnectionClosed
	}
	req := &message.Request{Id: id, Method: method, Params: params}
	select {
	case c.requests <- req:
		c.endSend()
	case <-ctx.Done():
		c.endSend()
		c.removePending(id)
		return nil, ctx.Err()
	}

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

// Notify sends a notification and blocks until its frame has actually been
// handed to the downstream sink (i.e. Mux has accepted it for writing), ctx
// is done, or the connection closes. Callers that don't need that
// acknowledgement can use NotifyAsync instead.
func (c *Client) Notify(ctx context.Context, method string, params []interface{}) error {
	ack, err := c.NotifyAsync(ctx, method, params)
	if err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyAsync enqueues a notification and returns immediately with an Ack
// channel that closes once the frame has been accepted by the downstream
// sink. It never blocks on the ack itself, only on enqueuing the frame.
func (c *Client) NotifyAsync(ctx context.Context, method string, params []interface{}) (Ack, error) {
	if !c.beginSend() {
		return nil, ErrConnectionClosed
	}
	defer c.endSend()

	ack := make(chan struct{})
	out := mux.OutboundNotification{
		Msg: &message.Notification{Method: method, Params: params},
		Ack: ack,
	}
	select {
	case c.notifications <- out:
		return ack, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack is a completion signal: it closes once a notification's frame has
// been written to the downstream sink.
type Ack <-chan struct{}

func (c *Client) register() (uint32, chan pendingResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, nil, c.closeErr
	}
	c.nextID++
	id := c.nextID
	ch := make(chan pendingResult, 1)
	c.pending[id] = ch
	return id, ch, nil
}

func (c *Client) removePending(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Client) beginSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.inFlight.Add(1)
	return true
}

func (c *Client) endSend() {
	c.inFlight.Done()
}

// resolve completes the pending entry for res.Id, if one exists. A
// response with no matching entry — already resolved, or never issued by
// this Client — is discarded silently, per the core's chosen resolution of
// stray-response handling.
func (c *Client) resolve(res *message.Response) {
	c.mu.Lock()
	ch, ok := c.pending[res.Id]
	if ok {
		delete(c.pending, res.Id)
	}
	c.mu.Unlock()

	if !ok {
		level.Debug(c.logger).Log("event", "stray response discarded", "id", res.Id)
		return
	}
	if res.IsError() {
		ch <- pendingResult{err: &RemoteError{Value: res.Err}}
	} else {
		ch <- pendingResult{value: res.Result}
	}
}

// runResolver consumes the Demux's inbound-response channel for the
// lifetime of the connection. It returns once responses closes, having
// first completed every still-pending Call with ErrConnectionClosed.
func (c *Client) runResolver(ctx context.Context, responses <-chan *message.Response) error {
	for {
		select {
		case res, ok := <-responses:
			if !ok {
				c.shutdownPending(ErrConnectionClosed)
				return nil
			}
			c.resolve(res)
		case <-ctx.Done():
			c.shutdownPending(ErrConnectionClosed)
			return ctx.Err()
		}
	}
}

func (c *Client) shutdownPending(err error) {
	c.mu.Lock()
	c.closed = true
	c.closeErr = err
	pending := c.pending
	c.pending = make(map[uint32]chan pendingResult)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- pendingResult{err: err}
	}
}

// closeOutbound closes the outbound request and notification channels
// exactly once, after waiting for any send already in flight to finish.
// Go renders the original "dropping all Client clones closes the outbound
// channels" as "the connection's context is done" — there is no refcounted
// drop in this port, so connection shutdown is the single trigger.
func (c *Client) closeOutbound() {
	c.closeOne.Do(func() {
		c.mu.Lock()
		c.closed = true
		if c.closeErr == nil {
			c.closeErr = ErrConnectionClosed
		}
		c.mu.Unlock()

		c.inFlight.Wait()
		close(c.requests)
		close(c.notifications)
	})
}
