package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-assistant-be/internal/pkg/logger"
	"medical-assistant-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
func (nopLogger) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (nopLogger) GetLogById(id string) (*logger.LogEntry, error) { return nil, nil }

type fakeDialogue struct {
	mu       sync.Mutex
	reply    string
	snapshot store.MedicalSnapshot
	streamed []string
	cleared  []string
}

func (f *fakeDialogue) StreamAnswer(ctx context.Context, userId uuid.UUID, threadId, message string, emit func(chunk string) bool) (store.MedicalSnapshot, error) {
	f.mu.Lock()
	f.streamed = append(f.streamed, message)
	f.mu.Unlock()
	for _, word := range strings.Fields(f.reply) {
		if !emit(word + " ") {
			break
		}
	}
	return f.snapshot, nil
}

func (f *fakeDialogue) ClearSession(ctx context.Context, threadId string) error {
	f.mu.Lock()
	f.cleared = append(f.cleared, threadId)
	f.mu.Unlock()
	return nil
}

func (f *fakeDialogue) MedicalSummary(ctx context.Context, threadId string) (store.MedicalSnapshot, error) {
	return f.snapshot, nil
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Client{
		UserID: uuid.New(),
		Send:   make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

func nextEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func frame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	require.NoError(t, err)
	return raw
}

func TestWelcomeGreetsClient(t *testing.T) {
	sock := NewChatSocket(&fakeDialogue{}, nopLogger{})
	client := newTestClient(t)

	sock.Welcome(client)

	env := nextEvent(t, client)
	assert.Equal(t, EventWelcome, env.Event)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data["message"], "Dr. Mira")
}

func TestStreamAnswerEmitsChunksThenSnapshot(t *testing.T) {
	dialogue := &fakeDialogue{
		reply: "rest and drink fluids",
		snapshot: store.MedicalSnapshot{
			Symptoms:     []string{"cough"},
			MessageCount: 2,
		},
	}
	sock := NewChatSocket(dialogue, nopLogger{})
	client := newTestClient(t)

	sock.Handle(client, frame(t, EventStartStreamAnswer, map[string]string{
		"thread_id": uuid.NewString(),
		"message":   "I have a cough",
	}))

	var chunks []string
	var sawDone bool
	for {
		env := nextEvent(t, client)
		if env.Event == EventMedicalInfoUpdate {
			data, ok := env.Data.(map[string]interface{})
			require.True(t, ok)
			assert.EqualValues(t, 2, data["message_count"])
			break
		}
		require.Equal(t, EventStreamChunk, env.Event)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		content, _ := data["content"].(string)
		if content == StreamDone {
			sawDone = true
			continue
		}
		chunks = append(chunks, content)
	}

	assert.True(t, sawDone, "expected the [DONE] sentinel before the snapshot")
	assert.Equal(t, "rest and drink fluids", strings.TrimSpace(strings.Join(chunks, "")))
	assert.Equal(t, []string{"I have a cough"}, dialogue.streamed)
}

func TestStartStreamAnswerRequiresMessage(t *testing.T) {
	sock := NewChatSocket(&fakeDialogue{}, nopLogger{})
	client := newTestClient(t)

	sock.Handle(client, frame(t, EventStartStreamAnswer, map[string]string{
		"thread_id": uuid.NewString(),
	}))

	env := nextEvent(t, client)
	assert.Equal(t, EventError, env.Event)
}

func TestStartStreamAnswerRequiresThreadID(t *testing.T) {
	sock := NewChatSocket(&fakeDialogue{}, nopLogger{})
	client := newTestClient(t)

	sock.Handle(client, frame(t, EventStartStreamAnswer, map[string]string{
		"message": "hello",
	}))

	env := nextEvent(t, client)
	assert.Equal(t, EventError, env.Event)
}

func TestClearSession(t *testing.T) {
	dialogue := &fakeDialogue{}
	sock := NewChatSocket(dialogue, nopLogger{})
	client := newTestClient(t)
	threadId := uuid.NewString()

	sock.Handle(client, frame(t, EventClearSession, map[string]string{"thread_id": threadId}))

	env := nextEvent(t, client)
	assert.Equal(t, EventSessionCleared, env.Event)
	assert.Equal(t, []string{threadId}, dialogue.cleared)
}

func TestGetMedicalSummary(t *testing.T) {
	dialogue := &fakeDialogue{
		snapshot: store.MedicalSnapshot{Symptoms: []string{"headache"}},
	}
	sock := NewChatSocket(dialogue, nopLogger{})
	client := newTestClient(t)

	sock.Handle(client, frame(t, EventGetMedicalSummary, map[string]string{"thread_id": uuid.NewString()}))

	env := nextEvent(t, client)
	require.Equal(t, EventMedicalSummary, env.Event)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	symptoms, ok := data["symptoms"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "headache", symptoms[0])
}

func TestUnknownEventRejected(t *testing.T) {
	sock := NewChatSocket(&fakeDialogue{}, nopLogger{})
	client := newTestClient(t)

	sock.Handle(client, frame(t, "dance", nil))

	env := nextEvent(t, client)
	assert.Equal(t, EventError, env.Event)
}

func TestMalformedFrameRejected(t *testing.T) {
	sock := NewChatSocket(&fakeDialogue{}, nopLogger{})
	client := newTestClient(t)

	sock.Handle(client, []byte("not json"))

	env := nextEvent(t, client)
	assert.Equal(t, EventError, env.Event)
}
