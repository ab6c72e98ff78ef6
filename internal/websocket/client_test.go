package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-assistant-be/pkg/store"
)

func TestPushAfterDisconnectReturnsFalse(t *testing.T) {
	c := newTestClient(t)
	c.cancel()

	// A stream goroutine racing the teardown keeps pushing; every call
	// must report the connection gone instead of panicking or blocking.
	for i := 0; i < 100; i++ {
		assert.False(t, c.Push(Envelope{Event: EventStreamChunk, Data: "chunk"}))
	}
}

func TestPushFullBufferDisconnectDoesNotBlock(t *testing.T) {
	c := newTestClient(t)
	c.Send = make(chan []byte, 1)

	require.True(t, c.Push(Envelope{Event: EventStreamChunk, Data: "first"}))

	done := make(chan bool, 1)
	go func() {
		done <- c.Push(Envelope{Event: EventStreamChunk, Data: "second"})
	}()

	time.Sleep(10 * time.Millisecond)
	c.cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Push must unblock when the connection is torn down")
	}
}

func TestStreamAfterDisconnectEmitsNothing(t *testing.T) {
	dialogue := &fakeDialogue{
		reply:    "rest and drink fluids",
		snapshot: store.MedicalSnapshot{Symptoms: []string{"headache"}},
	}
	sock := NewChatSocket(dialogue, nopLogger{})
	client := newTestClient(t)
	client.cancel()

	sock.Handle(client, frame(t, EventStartStreamAnswer, map[string]string{
		"thread_id": uuid.NewString(),
		"message":   "what should I do",
	}))

	select {
	case raw := <-client.Send:
		t.Fatalf("no frames expected after disconnect, got %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSlowClientDroppedWithoutPanic(t *testing.T) {
	hub := NewHub(nil, nopLogger{})
	c := newTestClient(t)
	c.Hub = hub
	c.Send = make(chan []byte, 1)
	hub.clients[c.UserID] = []*Client{c}

	hub.Send(c.UserID, Envelope{Event: EventStreamChunk, Data: "fills the buffer"})
	hub.Send(c.UserID, Envelope{Event: EventStreamChunk, Data: "overflows"})
	hub.Send(c.UserID, Envelope{Event: EventStreamChunk, Data: "dropped again"})

	select {
	case <-c.Context().Done():
	default:
		t.Fatal("slow client must be cancelled, not left registered")
	}
}

func TestUnregisterLeavesSendUsable(t *testing.T) {
	hub := NewHub(nil, nopLogger{})
	go hub.Run()

	c := newTestClient(t)
	c.Hub = hub
	hub.register <- c
	hub.unregister <- c

	// The channel stays open after unregister; a racing stream goroutine
	// pushes into the buffer until the context stops it.
	assert.True(t, c.Push(Envelope{Event: EventStreamChunk, Data: "late chunk"}))
}
