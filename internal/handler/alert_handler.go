package handler

import (
	"context"

	"medical-assistant-be/internal/pkg/logger"
	internalWS "medical-assistant-be/internal/websocket"
	"medical-assistant-be/pkg/events"
	pktNats "medical-assistant-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// AlertHandler owns the websocket entry point and relays domain events
// (emergency urgency) to connected clients as push alerts.
type AlertHandler struct {
	subscriber *pktNats.Subscriber
	hub        *internalWS.Hub
	sock       *internalWS.ChatSocket
	logger     logger.ILogger
}

func NewAlertHandler(sub *pktNats.Subscriber, hub *internalWS.Hub, sock *internalWS.ChatSocket, log logger.ILogger) *AlertHandler {
	return &AlertHandler{
		subscriber: sub,
		hub:        hub,
		sock:       sock,
		logger:     log,
	}
}

// Start subscribes to emergency events and forwards them to the hub.
// No-op when NATS is unavailable; alerts are auxiliary.
func (h *AlertHandler) Start() {
	if h.subscriber == nil {
		return
	}
	err := h.subscriber.Subscribe("events.EMERGENCY_DETECTED", "emergency-alerts", func(ctx context.Context, event events.Event) error {
		payload := event.Payload()
		userIDStr, _ := payload["user_id"].(string)
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			h.logger.Warn("AlertHandler", "Emergency event without valid user_id", map[string]interface{}{"payload": payload})
			return nil // drop, not retriable
		}

		h.hub.Send(userID, internalWS.Envelope{
			Event: "urgency_alert",
			Data:  payload,
		})
		return nil
	})
	if err != nil {
		h.logger.Warn("AlertHandler", "Failed to subscribe to emergency events", map[string]interface{}{"error": err.Error()})
	}
}

// ServeWs upgrades the chat websocket. The client identifies itself via
// the user_id query parameter.
func (h *AlertHandler) ServeWs(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing or invalid user_id query parameter"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("AlertHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, h.sock, conn, userID)
			h.logger.Info("AlertHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes mounts the websocket endpoint.
func (h *AlertHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/chat", h.ServeWs)
}
