package message

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrTruncated means the decoder needs more bytes before it can produce a
// message; the caller should leave its buffer untouched and read more.
var ErrTruncated = errors.New("message: truncated frame")

// InvalidError means one packet was syntactically valid MessagePack but not a
// well-shaped Request/Response/Notification. It is not fatal: the decoder has
// already consumed exactly the malformed value's bytes, so the caller can
// resume scanning at the next byte boundary.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string { return "message: invalid frame: " + e.Reason }

func invalid(format string, args ...interface{}) error {
	return &InvalidError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalid reports whether err is (or wraps) an *InvalidError.
func IsInvalid(err error) bool {
	var ie *InvalidError
	return errors.As(err, &ie)
}

// Decode reads exactly one top-level MessagePack value from dec and
// interprets it as a Request, Response or Notification.
//
// Three outcomes are possible:
//   - (msg, nil): a well-formed message.
//   - (nil, ErrTruncated): the underlying reader hit EOF/unexpected-EOF while
//     reading the value; no bytes of a new value were consumed yet from the
//     caller's point of view (the caller should retry once more data has
//     arrived).
//   - (nil, *InvalidError): the decoder read one full (but malformed) value;
//     the caller should resume decoding immediately at the next value.
//
// Any other error is an unknown/fatal I/O error and should close the
// connection.
func Decode(dec *msgpack.Decoder) (Message, error) {
	v, err := dec.DecodeInterface()
	if err != nil {
		if isEOF(err) {
			return nil, ErrTruncated
		}
		return nil, err
	}

	arr, ok := v.([]interface{})
	if !ok {
		return nil, invalid("top-level value is not an array (%T)", v)
	}
	if len(arr) == 0 {
		return nil, invalid("empty array")
	}

	tag, ok := toInt(arr[0])
	if !ok {
		return nil, invalid("tag element is not an integer (%T)", arr[0])
	}

	switch Type(tag) {
	case TypeRequest:
		return decodeRequest(arr)
	case TypeResponse:
		return decodeResponse(arr)
	case TypeNotification:
		return decodeNotification(arr)
	default:
		return nil, invalid("unknown tag %d", tag)
	}
}

func decodeRequest(arr []interface{}) (Message, error) {
	if len(arr) != 4 {
		return nil, invalid("request array has length %d, want 4", len(arr))
	}
	id, ok := toUint32(arr[1])
	if !ok {
		return nil, invalid("request id is not an integer (%T)", arr[1])
	}
	method, ok := arr[2].(string)
	if !ok {
		return nil, invalid("request method is not a string (%T)", arr[2])
	}
	if method == "" {
		return nil, invalid("request method is empty")
	}
	params, err := toParams(arr[3])
	if err != nil {
		return nil, err
	}
	return &Request{Id: id, Method: method, Params: params}, nil
}

func decodeResponse(arr []interface{}) (Message, error) {
	if len(arr) != 4 {
		return nil, invalid("response array has length %d, want 4", len(arr))
	}
	id, ok := toUint32(arr[1])
	if !ok {
		return nil, invalid("response id is not an integer (%T)", arr[1])
	}
	errVal, hasErr := arr[2], arr[2] != nil
	resVal, hasRes := arr[3], arr[3] != nil
	if hasErr && hasRes {
		return nil, invalid("response must set at most one of error/result")
	}
	// Both nil is a success response whose result happens to be the Value
	// "nil" (e.g. a handler returning a nil result with a nil error).
	return &Response{Id: id, Err: valueOrNil(hasErr, errVal), Result: valueOrNil(hasRes, resVal)}, nil
}

func valueOrNil(set bool, v interface{}) interface{} {
	if !set {
		return nil
	}
	return v
}

func decodeNotification(arr []interface{}) (Message, error) {
	if len(arr) != 3 {
		return nil, invalid("notification array has length %d, want 3", len(arr))
	}
	method, ok := arr[1].(string)
	if !ok {
		return nil, invalid("notification method is not a string (%T)", arr[1])
	}
	if method == "" {
		return nil, invalid("notification method is empty")
	}
	params, err := toParams(arr[2])
	if err != nil {
		return nil, err
	}
	return &Notification{Method: method, Params: params}, nil
}

func toParams(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	params, ok := v.([]interface{})
	if !ok {
		return nil, invalid("params is not an array (%T)", v)
	}
	return params, nil
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func toUint32(v interface{}) (uint32, bool) {
	n, ok := toInt(v)
	if !ok || n < 0 {
		return 0, false
	}
	return uint32(n), true
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
