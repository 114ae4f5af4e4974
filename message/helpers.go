package message

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes msg to its wire form. Mainly useful for tests and
// one-shot callers; the Codec streams directly over a msgpack.Encoder
// instead of allocating per message.
func Marshal(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := Encode(enc, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a single message from data. It is stricter than Decode
// in that trailing bytes after the first value are rejected.
func Unmarshal(data []byte) (Message, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	msg, err := Decode(dec)
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, invalid("%d trailing bytes after message", r.Len())
	}
	return msg, nil
}
