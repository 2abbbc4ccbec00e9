/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) []Envelope {
	t.Helper()

	var out []Envelope
	for {
		select {
		case msg, ok := <-c.Send():
			if !ok {
				return out
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(msg, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func closed(c *Client) bool {
	for {
		select {
		case _, ok := <-c.Send():
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

func TestEmit(t *testing.T) {
	h := New(nil)
	a := h.Register("a", 4)

	h.Emit("a", "hello", map[string]string{"x": "y"})
	h.Emit("nobody", "hello", nil)

	got := receive(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Event)
	assert.JSONEq(t, `{"x":"y"}`, string(got[0].Data))
}

func TestBroadcast(t *testing.T) {
	h := New(nil)
	a := h.Register("a", 4)
	b := h.Register("b", 4)
	c := h.Register("c", 4)

	h.Join("room", "a")
	h.Join("room", "b")
	h.Join("other", "c")

	h.Broadcast("room", "ping", nil)
	assert.Len(t, receive(t, a), 1)
	assert.Len(t, receive(t, b), 1)
	assert.Empty(t, receive(t, c))

	h.BroadcastExcept("room", "a", "ping", nil)
	assert.Empty(t, receive(t, a))
	assert.Len(t, receive(t, b), 1)
}

func TestJoinRequiresRegistration(t *testing.T) {
	h := New(nil)

	h.Join("room", "ghost")
	assert.Equal(t, 0, h.RoomSize("room"))
}

func TestLeaveAndClear(t *testing.T) {
	h := New(nil)
	a := h.Register("a", 4)
	h.Register("b", 4)

	h.Join("room", "a")
	h.Join("room", "b")
	assert.Equal(t, 2, h.RoomSize("room"))

	h.Leave("room", "b")
	assert.Equal(t, 1, h.RoomSize("room"))

	h.Clear("room")
	assert.Equal(t, 0, h.RoomSize("room"))
	assert.Equal(t, 2, h.Count(), "clearing a room keeps connections")

	h.Broadcast("room", "ping", nil)
	assert.Empty(t, receive(t, a))
}

func TestUnregisterClosesAndLeavesRooms(t *testing.T) {
	h := New(nil)
	a := h.Register("a", 4)
	h.Join("room", "a")

	h.Unregister("a")
	h.Unregister("a")

	assert.True(t, closed(a))
	assert.Equal(t, 0, h.RoomSize("room"))
	assert.Equal(t, 0, h.Count())
}

func TestRegisterReplacesExisting(t *testing.T) {
	h := New(nil)
	old := h.Register("a", 4)
	h.Join("room", "a")

	fresh := h.Register("a", 4)

	assert.True(t, closed(old))
	assert.Equal(t, 0, h.RoomSize("room"))

	h.Emit("a", "hello", nil)
	assert.Len(t, receive(t, fresh), 1)
}

func TestSlowClientDropped(t *testing.T) {
	h := New(nil)
	slow := h.Register("slow", 1)
	fast := h.Register("fast", 8)
	h.Join("room", "slow")
	h.Join("room", "fast")

	h.Broadcast("room", "one", nil)
	h.Broadcast("room", "two", nil)

	assert.Len(t, receive(t, fast), 2)
	assert.Equal(t, 1, h.Count())
	assert.Equal(t, 1, h.RoomSize("room"))

	got := receive(t, slow)
	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Event)
	assert.True(t, closed(slow))
}

func TestUnencodablePayloadSkipped(t *testing.T) {
	h := New(nil)
	a := h.Register("a", 4)

	h.Emit("a", "bad", make(chan int))

	assert.Empty(t, receive(t, a))
	assert.Equal(t, 1, h.Count())
}

func TestCloseAll(t *testing.T) {
	h := New(nil)
	a := h.Register("a", 4)
	b := h.Register("b", 4)

	h.CloseAll()

	assert.True(t, closed(a))
	assert.True(t, closed(b))
	assert.Equal(t, 0, h.Count())
}
