package process

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStartEchoesThroughCat uses the system "cat" as a stand-in peer: what
// is written to the stream's stdin should come back out of its stdout.
func TestStartEchoesThroughCat(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Start(ctx, "cat")
	if err != nil {
		t.Skipf("cat not available: %v", err)
	}
	defer s.Close()

	_, err = s.Write([]byte("ping\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(s)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ping\n", line)
}
