package mux

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubnt-intrepid/msgpack-rpc-go/codec"
	"github.com/ubnt-intrepid/msgpack-rpc-go/message"
)

func TestMuxShutsDownWhenAllUpstreamsClose(t *testing.T) {
	var buf safeBuffer
	m := New(&buf, 4, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	m.Requests <- &message.Request{Id: 1, Method: "a"}
	close(m.Requests)
	close(m.Responses)
	close(m.Notifications)

	require.NoError(t, <-done)

	d := codec.NewDecoder()
	d.Feed(buf.Bytes())
	msg, ok, err := d.Decode()
	require.NoError(t, err)
	require.True(t, ok)
	req, ok := msg.(*message.Request)
	require.True(t, ok)
	assert.Equal(t, "a", req.Method)
}

func TestMuxVisitsAllThreeKindsWithinAFairRound(t *testing.T) {
	var buf safeBuffer
	m := New(&buf, 8, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go m.Run(ctx)

	m.Requests <- &message.Request{Id: 1, Method: "r"}
	m.Responses <- &message.Response{Id: 1, Result: int64(1)}
	m.Notifications <- OutboundNotification{Msg: &message.Notification{Method: "n"}}

	close(m.Requests)
	close(m.Responses)
	close(m.Notifications)

	time.Sleep(50 * time.Millisecond)

	d := codec.NewDecoder()
	d.Feed(buf.Bytes())
	var kinds []message.Type
	for {
		msg, ok, err := d.Decode()
		require.NoError(t, err)
		if !ok {
			break
		}
		kinds = append(kinds, msg.Tag())
	}
	assert.ElementsMatch(t, []message.Type{message.TypeRequest, message.TypeResponse, message.TypeNotification}, kinds)
}

func TestMuxPreservesPerChannelOrder(t *testing.T) {
	var buf safeBuffer
	m := New(&buf, 8, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go m.Run(ctx)

	m.Requests <- &message.Request{Id: 1, Method: "first"}
	m.Requests <- &message.Request{Id: 2, Method: "second"}
	close(m.Requests)
	close(m.Responses)
	close(m.Notifications)

	time.Sleep(50 * time.Millisecond)

	d := codec.NewDecoder()
	d.Feed(buf.Bytes())
	var methods []string
	for {
		msg, ok, err := d.Decode()
		require.NoError(t, err)
		if !ok {
			break
		}
		methods = append(methods, msg.(*message.Request).Method)
	}
	assert.Equal(t, []string{"first", "second"}, methods)
}

func TestMuxAckResolvesOnlyAfterWrite(t *testing.T) {
	var buf safeBuffer
	m := New(&buf, 8, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go m.Run(ctx)

	ack := make(chan struct{})
	m.Notifications <- OutboundNotification{Msg: &message.Notification{Method: "n"}, Ack: ack}

	select {
	case <-ack:
	case <-time.After(2 * time.Second):
		t.Fatal("ack never closed")
	}

	d := codec.NewDecoder()
	d.Feed(buf.Bytes())
	msg, ok, err := d.Decode()
	require.NoError(t, err)
	require.True(t, ok)
	not, ok := msg.(*message.Notification)
	require.True(t, ok)
	assert.Equal(t, "n", not.Method)

	close(m.Requests)
	close(m.Responses)
	close(m.Notifications)
}

// safeBuffer guards bytes.Buffer for concurrent test access (mux.Run writes
// from its own goroutine while the test reads after closing channels).
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}
