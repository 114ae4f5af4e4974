// Package message is the in-memory representation of the three MessagePack-RPC
// frame kinds — Request, Response and Notification — and their wire encoding.
//
// Wire shapes (MessagePack arrays, tag in element 0):
//
//	Request:      [0, id, method, params]
//	Response:     [1, id, error, result]
//	Notification: [2, method, params]
package message

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Type tags the three MessagePack-RPC frame kinds.
type Type int

const (
	// TypeRequest tags a Request frame.
	TypeRequest Type = 0
	// TypeResponse tags a Response frame.
	TypeResponse Type = 1
	// TypeNotification tags a Notification frame.
	TypeNotification Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	case TypeNotification:
		return "notification"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Message is the closed set of frame kinds a Codec can carry. Only *Request,
// *Response and *Notification implement it.
type Message interface {
	// Tag returns this message's wire tag.
	Tag() Type

	// encode appends this message's wire array to the encoder.
	encode(enc *msgpack.Encoder) error
}

// Request expects a matching Response, correlated by Id. Method is a
// non-empty UTF-8 string; Params is an ordered sequence that may be empty.
type Request struct {
	Id     uint32
	Method string
	Params []interface{}
}

// Tag implements Message.
func (r *Request) Tag() Type { return TypeRequest }

func (r *Request) encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(4); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(TypeRequest)); err != nil {
		return err
	}
	if err := enc.EncodeUint32(r.Id); err != nil {
		return err
	}
	if err := enc.EncodeString(r.Method); err != nil {
		return err
	}
	return encodeParams(enc, r.Params)
}

// Response carries exactly one of Result or Err, correlated to a prior
// Request by Id.
type Response struct {
	Id     uint32
	Result interface{} // nil unless this is a success response
	Err    interface{} // nil unless this is an error response
}

// Tag implements Message.
func (r *Response) Tag() Type { return TypeResponse }

// IsError reports whether this response carries an error payload.
func (r *Response) IsError() bool { return r.Err != nil }

func (r *Response) encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(4); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(TypeResponse)); err != nil {
		return err
	}
	if err := enc.EncodeUint32(r.Id); err != nil {
		return err
	}
	if err := enc.Encode(r.Err); err != nil {
		return err
	}
	return enc.Encode(r.Result)
}

// Notification is fire-and-forget: no Id, no reply.
type Notification struct {
	Method string
	Params []interface{}
}

// Tag implements Message.
func (n *Notification) Tag() Type { return TypeNotification }

func (n *Notification) encode(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(TypeNotification)); err != nil {
		return err
	}
	if err := enc.EncodeString(n.Method); err != nil {
		return err
	}
	return encodeParams(enc, n.Params)
}

func encodeParams(enc *msgpack.Encoder, params []interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	return enc.Encode(params)
}

// Encode writes msg's wire array using enc.
func Encode(enc *msgpack.Encoder, msg Message) error {
	return msg.encode(enc)
}
