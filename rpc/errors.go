package rpc

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed is returned by Client methods once the connection has
// gone away — by remote EOF, a fatal decode error, or local shutdown. A
// handler response that can no longer be delivered is dropped by Endpoint,
// not reported as an error.
var ErrConnectionClosed = errors.New("rpc: connection closed")

// ErrMethodNotFound is the error a Handler should wrap when no method
// matches; see UnimplementedHandler.
var ErrMethodNotFound = errors.New("rpc: method not found")

// ErrHandlerNoReply is the error a request gets back when the Handler
// wired up for its method has no request logic at all — e.g. a
// FuncHandler built with a nil RequestFunc, registered only to handle
// notifications. It travels back to the caller as a RemoteError like any
// other handler-produced error.
var ErrHandlerNoReply = errors.New("rpc: handler produced no reply")

// RemoteError wraps the arbitrary Value a peer's handler chose to send back
// in a Response's error slot. It is returned from Client.Call verbatim —
// the core never interprets or translates it.
type RemoteError struct {
	Value interface{}
}

func (e *RemoteError) Error() string {
	if s, ok := e.Value.(string); ok {
		return s
	}
	return fmt.Sprintf("rpc: remote error: %v", e.Value)
}
