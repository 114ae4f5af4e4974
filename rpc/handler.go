package rpc

import (
	"context"
	"fmt"
)

// Handler is the contract user code implements. The core delivers every
// inbound request and notification to it; it never fabricates a response
// and never interprets a method name itself.
//
// client is a borrow of the local peer's Client: handlers are free to issue
// nested Call/Notify requests to the same peer before returning.
type Handler interface {
	// HandleRequest answers a Request. A nil error with a nil result is a
	// valid success response (e.g. the Value "nil"). Returning an error
	// sends it in the Response's error slot: a *RemoteError as its original
	// Value, any other error as its string form — see Endpoint's errValue.
	HandleRequest(ctx context.Context, client *Client, method string, params []interface{}) (result interface{}, err error)

	// HandleNotification handles a Notification. It returns nothing and
	// nothing is sent back to the peer, since notifications have no reply.
	HandleNotification(ctx context.Context, client *Client, method string, params []interface{})
}

// UnimplementedHandler answers every request with ErrMethodNotFound and
// silently drops every notification. Embed it in a Handler that only cares
// about a subset of methods, or use it directly as a MethodMux fallback
// (NewMethodMux's default).
type UnimplementedHandler struct{}

func (UnimplementedHandler) HandleRequest(_ context.Context, _ *Client, method string, _ []interface{}) (interface{}, error) {
	return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, method)
}

func (UnimplementedHandler) HandleNotification(context.Context, *Client, string, []interface{}) {}

// RequestFunc and NotificationFunc are the plain-function halves that
// FuncHandler adapts to the Handler interface, the way http.HandlerFunc
// adapts a function to http.Handler.
type RequestFunc func(ctx context.Context, client *Client, method string, params []interface{}) (interface{}, error)
type NotificationFunc func(ctx context.Context, client *Client, method string, params []interface{})

// FuncHandler builds a Handler from a pair of functions. A nil
// NotificationFunc falls back to UnimplementedHandler's no-op; a nil
// RequestFunc answers every request with ErrHandlerNoReply, for a handler
// that only ever means to receive notifications.
func FuncHandler(onRequest RequestFunc, onNotification NotificationFunc) Handler {
	if onNotification == nil {
		onNotification = UnimplementedHandler{}.HandleNotification
	}
	return &funcHandler{onRequest: onRequest, onNotification: onNotification}
}

type funcHandler struct {
	onRequest      RequestFunc
	onNotification NotificationFunc
}

func (h *funcHandler) HandleRequest(ctx context.Context, c *Client, method string, params []interface{}) (interface{}, error) {
	if h.onRequest == nil {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNoReply, method)
	}
	return h.onRequest(ctx, c, method, params)
}

func (h *funcHandler) HandleNotification(ctx context.Context, c *Client, method string, params []interface{}) {
	h.onNotification(ctx, c, method, params)
}

// MethodMux dispatches by exact method name to a registered Handler,
// falling back to UnimplementedHandler for anything unregistered — the
// generalization of the teacher's single MethodNotFound terminal handler
// into a routing table, since this spec's Handler answers every method
// through one object rather than a middleware chain.
type MethodMux struct {
	handlers map[string]Handler
	fallback Handler
}

// NewMethodMux returns an empty MethodMux; unregistered methods get
// UnimplementedHandler's behavior unless a fallback is set with
// SetFallback.
func NewMethodMux() *MethodMux {
	return &MethodMux{handlers: make(map[string]Handler), fallback: UnimplementedHandler{}}
}

// Handle registers handler for method, overwriting any previous
// registration.
func (m *MethodMux) Handle(method string, handler Handler) {
	m.handlers[method] = handler
}

// SetFallback replaces the handler used for unregistered methods.
func (m *MethodMux) SetFallback(handler Handler) {
	m.fallback = handler
}

// Methods returns the registered method names, for introspection (e.g. a
// CLI "methods" subcommand).
func (m *MethodMux) Methods() []string {
	out := make([]string, 0, len(m.handlers))
	for method := range m.handlers {
		out = append(out, method)
	}
	return out
}

func (m *MethodMux) lookup(method string) Handler {
	if h, ok := m.handlers[method]; ok {
		return h
	}
	return m.fallback
}

func (m *MethodMux) HandleRequest(ctx context.Context, c *Client, method string, params []interface{}) (interface{}, error) {
	return m.lookup(method).HandleRequest(ctx, c, method, params)
}

func (m *MethodMux) HandleNotification(ctx context.Context, c *Client, method string, params []interface{}) {
	m.lookup(method).HandleNotification(ctx, c, method, params)
}
