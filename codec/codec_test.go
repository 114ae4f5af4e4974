package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubnt-intrepid/msgpack-rpc-go/message"
)

func encodeBytes(t *testing.T, msg message.Message) []byte {
	t.Helper()
	data, err := message.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestDecoderPartialProgress(t *testing.T) {
	data := encodeBytes(t, &message.Request{Id: 1, Method: "the_answer"})

	d := NewDecoder()
	for i := 1; i < len(data); i++ {
		d.buf.Reset()
		d.Feed(data[:i])
		msg, ok, err := d.Decode()
		require.NoError(t, err)
		assert.False(t, ok, "prefix of length %d should not decode", i)
		assert.Nil(t, msg)
		assert.Equal(t, i, d.Buffered(), "partial prefix must not be consumed")
	}

	d.buf.Reset()
	d.Feed(data)
	msg, ok, err := d.Decode()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, msg)
	assert.Equal(t, 0, d.Buffered())
}

func TestDecoderMalformedThenValid(t *testing.T) {
	garbage, err := message.Marshal(&message.Notification{Method: "x"})
	require.NoError(t, err)
	// corrupt the tag byte of a copy so it decodes as an unknown tag (invalid,
	// not truncated): encode a bogus 1-element array instead.
	var bogus bytes.Buffer
	bogus.Write([]byte{0x91, 0x7f}) // fixarray(1){ fixint 127 }

	valid := encodeBytes(t, &message.Request{Id: 1, Method: "ping"})

	d := NewDecoder()
	d.Feed(bogus.Bytes())
	d.Feed(valid)
	d.Feed(bogus.Bytes())
	d.Feed(valid)

	var got []message.Message
	for {
		msg, ok, err := d.Decode()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, msg)
	}
	require.Len(t, got, 2)
	for _, m := range got {
		req, ok := m.(*message.Request)
		require.True(t, ok)
		assert.Equal(t, "ping", req.Method)
	}
	assert.Equal(t, 0, d.Buffered())
	_ = garbage
}

func TestDecoderReportsSkippedInvalid(t *testing.T) {
	var bogus bytes.Buffer
	bogus.Write([]byte{0x91, 0x7f})
	valid := encodeBytes(t, &message.Notification{Method: "shutdown"})

	d := NewDecoder()
	d.Feed(bogus.Bytes())
	d.Feed(valid)

	msg, ok, skipped, err := d.DecodeInvalid()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, msg)
	assert.Len(t, skipped, 1)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	req := &message.Request{Id: 3, Method: "delay", Params: []interface{}{int64(1)}}
	require.NoError(t, enc.Encode(req))

	d := NewDecoder()
	d.Feed(buf.Bytes())
	msg, ok, err := d.Decode()
	require.NoError(t, err)
	require.True(t, ok)
	gotReq, ok := msg.(*message.Request)
	require.True(t, ok)
	assert.Equal(t, req.Method, gotReq.Method)
}
