package websocket

import (
	"context"
	"encoding/json"

	"medical-assistant-be/internal/pkg/logger"
	"medical-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// Client-initiated events.
const (
	EventStartStreamAnswer = "start_stream_answer"
	EventClearSession      = "clear_session"
	EventGetMedicalSummary = "get_medical_summary"
)

// Server-pushed events.
const (
	EventWelcome           = "welcome"
	EventStreamChunk       = "stream_chunk"
	EventMedicalInfoUpdate = "medical_info_update"
	EventSessionCleared    = "session_cleared"
	EventMedicalSummary    = "medical_summary"
	EventError             = "error"
)

// StreamDone is the sentinel chunk that closes a streamed answer.
const StreamDone = "[DONE]"

const welcomeMessage = "Hi, I'm Dr. Mira. Tell me what's bothering you today and I'll do my best to help."

// DialogueService is the slice of the chat service the socket layer needs.
type DialogueService interface {
	// StreamAnswer runs one dialogue turn and feeds the reply through emit
	// chunk by chunk. emit returning false aborts the stream (client gone).
	StreamAnswer(ctx context.Context, userID uuid.UUID, threadID, message string, emit func(chunk string) bool) (store.MedicalSnapshot, error)
	ClearSession(ctx context.Context, threadID string) error
	MedicalSummary(ctx context.Context, threadID string) (store.MedicalSnapshot, error)
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type streamRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type sessionRequest struct {
	ThreadID string `json:"thread_id"`
}

// ChatSocket dispatches the dialogue protocol over a hub connection.
type ChatSocket struct {
	dialogue DialogueService
	logger   logger.ILogger
}

func NewChatSocket(dialogue DialogueService, log logger.ILogger) *ChatSocket {
	return &ChatSocket{dialogue: dialogue, logger: log}
}

// Welcome greets a freshly connected client.
func (s *ChatSocket) Welcome(c *Client) {
	c.Push(Envelope{Event: EventWelcome, Data: map[string]string{"message": welcomeMessage}})
}

// Handle processes one inbound frame.
func (s *ChatSocket) Handle(c *Client, payload []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "invalid frame"}})
		return
	}

	switch frame.Event {
	case EventStartStreamAnswer:
		var req streamRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil || req.Message == "" {
			c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "message is required"}})
			return
		}
		if req.ThreadID == "" {
			c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "thread_id is required"}})
			return
		}
		// Run off the read loop so ping/pong keeps flowing during generation.
		go s.stream(c, req)

	case EventClearSession:
		var req sessionRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil || req.ThreadID == "" {
			c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "thread_id is required"}})
			return
		}
		if err := s.dialogue.ClearSession(c.Context(), req.ThreadID); err != nil {
			s.logger.Error("ChatSocket", "Failed to clear session", map[string]interface{}{"thread_id": req.ThreadID, "error": err.Error()})
			c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "failed to clear session"}})
			return
		}
		c.Push(Envelope{Event: EventSessionCleared, Data: map[string]string{"thread_id": req.ThreadID}})

	case EventGetMedicalSummary:
		var req sessionRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil || req.ThreadID == "" {
			c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "thread_id is required"}})
			return
		}
		snapshot, err := s.dialogue.MedicalSummary(c.Context(), req.ThreadID)
		if err != nil {
			s.logger.Error("ChatSocket", "Failed to load medical summary", map[string]interface{}{"thread_id": req.ThreadID, "error": err.Error()})
			c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "failed to load medical summary"}})
			return
		}
		c.Push(Envelope{Event: EventMedicalSummary, Data: snapshot})

	default:
		c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "unknown event: " + frame.Event}})
	}
}

func (s *ChatSocket) stream(c *Client, req streamRequest) {
	emit := func(chunk string) bool {
		return c.Push(Envelope{Event: EventStreamChunk, Data: map[string]string{"thread_id": req.ThreadID, "content": chunk}})
	}

	snapshot, err := s.dialogue.StreamAnswer(c.Context(), c.UserID, req.ThreadID, req.Message, emit)
	if err != nil {
		s.logger.Error("ChatSocket", "Stream failed", map[string]interface{}{"thread_id": req.ThreadID, "error": err.Error()})
		c.Push(Envelope{Event: EventError, Data: map[string]string{"message": "failed to process message"}})
		return
	}

	emit(StreamDone)
	c.Push(Envelope{Event: EventMedicalInfoUpdate, Data: snapshot})
}
