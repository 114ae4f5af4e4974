package message

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestRoundTripRequest(t *testing.T) {
	req := &Request{Id: 7, Method: "the_answer", Params: []interface{}{"x", int64(1)}}
	data, err := Marshal(req)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	gotReq, ok := got.(*Request)
	require.True(t, ok)
	assert.Equal(t, req.Id, gotReq.Id)
	assert.Equal(t, req.Method, gotReq.Method)
	assert.Equal(t, []interface{}{"x", int64(1)}, gotReq.Params)
}

func TestRoundTripRequestEmptyParams(t *testing.T) {
	req := &Request{Id: 1, Method: "ping"}
	data, err := Marshal(req)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	gotReq := got.(*Request)
	assert.Empty(t, gotReq.Params)
}

func TestRoundTripResponseOk(t *testing.T) {
	resp := &Response{Id: 42, Result: int64(42)}
	data, err := Marshal(resp)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	gotResp := got.(*Response)
	assert.Equal(t, resp.Id, gotResp.Id)
	assert.False(t, gotResp.IsError())
	assert.EqualValues(t, 42, gotResp.Result)
}

func TestRoundTripResponseErr(t *testing.T) {
	resp := &Response{Id: 42, Err: "method not found"}
	data, err := Marshal(resp)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	gotResp := got.(*Response)
	assert.True(t, gotResp.IsError())
	assert.Equal(t, "method not found", gotResp.Err)
	assert.Nil(t, gotResp.Result)
}

func TestRoundTripNotification(t *testing.T) {
	not := &Notification{Method: "shutdown"}
	data, err := Marshal(not)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	gotNot := got.(*Notification)
	assert.Equal(t, not.Method, gotNot.Method)
	assert.Empty(t, gotNot.Params)
}

func TestDecodeResponseBothSlotsSetIsInvalid(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	require.NoError(t, enc.EncodeArrayLen(4))
	require.NoError(t, enc.EncodeInt(int64(TypeResponse)))
	require.NoError(t, enc.EncodeUint32(1))
	require.NoError(t, enc.EncodeString("err"))
	require.NoError(t, enc.EncodeString("result"))

	_, err := Unmarshal(buf.Bytes())
	assert.True(t, IsInvalid(err))
}

// TestDecodeResponseNeitherSlotSetIsSuccess covers a success response whose
// result happens to be the Value "nil": neither wire slot is set, and that
// is not an error shape, just Ok(Nil).
func TestDecodeResponseNeitherSlotSetIsSuccess(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	require.NoError(t, enc.EncodeArrayLen(4))
	require.NoError(t, enc.EncodeInt(int64(TypeResponse)))
	require.NoError(t, enc.EncodeUint32(1))
	require.NoError(t, enc.EncodeNil())
	require.NoError(t, enc.EncodeNil())

	got, err := Unmarshal(buf.Bytes())
	require.NoError(t, err)
	resp := got.(*Response)
	assert.False(t, resp.IsError())
	assert.Nil(t, resp.Result)
}

func TestDecodeUnknownTagIsInvalid(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	require.NoError(t, enc.EncodeArrayLen(1))
	require.NoError(t, enc.EncodeInt(99))

	_, err := Unmarshal(buf.Bytes())
	assert.True(t, IsInvalid(err))
}

func TestDecodeNonArrayIsInvalid(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	require.NoError(t, enc.EncodeString("garbage"))

	_, err := Unmarshal(buf.Bytes())
	assert.True(t, IsInvalid(err))
}

func TestDecodeEmptyMethodIsInvalid(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	require.NoError(t, enc.EncodeArrayLen(4))
	require.NoError(t, enc.EncodeInt(int64(TypeRequest)))
	require.NoError(t, enc.EncodeUint32(1))
	require.NoError(t, enc.EncodeString(""))
	require.NoError(t, enc.EncodeArrayLen(0))

	_, err := Unmarshal(buf.Bytes())
	assert.True(t, IsInvalid(err))
}

func TestDecodeTruncated(t *testing.T) {
	req := &Request{Id: 1, Method: "ping", Params: []interface{}{1, 2, 3}}
	data, err := Marshal(req)
	require.NoError(t, err)

	dec := msgpack.NewDecoder(bytes.NewReader(data[:len(data)-1]))
	_, err = Decode(dec)
	assert.ErrorIs(t, err, ErrTruncated)
}
