package web

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	msgs   []any
	fail   bool
	closed bool
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.msgs = append(c.msgs, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubBroadcastReachesAllConnections(t *testing.T) {
	h := NewHub(testLogger())
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)

	h.Broadcast(map[string]string{"type": EventCardCreated})

	require.Len(t, a.msgs, 1)
	require.Len(t, b.msgs, 1)
	assert.Equal(t, 2, h.Count())
}

func TestHubPrunesDeadConnections(t *testing.T) {
	h := NewHub(testLogger())
	healthy, dead := &fakeConn{}, &fakeConn{fail: true}
	h.Register(healthy)
	h.Register(dead)

	h.Broadcast(map[string]string{"type": EventCardUpdated})

	assert.Equal(t, 1, h.Count())
	assert.True(t, dead.closed)
	assert.Len(t, healthy.msgs, 1, "one bad subscriber must not block the rest")

	h.Broadcast(map[string]string{"type": EventCardDeleted})
	assert.Len(t, healthy.msgs, 2)
}

func TestHubUnregisterIdempotent(t *testing.T) {
	h := NewHub(testLogger())
	c := &fakeConn{}
	h.Register(c)

	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.Count())

	h.Broadcast(map[string]string{"type": EventCardCreated})
	assert.Empty(t, c.msgs)
}
