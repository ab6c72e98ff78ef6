package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs wires a websocket connection into the hub and the dialogue
// protocol. Blocks until the connection closes.
func ServeWs(hub *Hub, sock *ChatSocket, c *websocket.Conn, userID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		Hub:    hub,
		Conn:   c,
		UserID: userID,
		Send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
	client.OnMessage = func(payload []byte) {
		sock.Handle(client, payload)
	}
	client.Hub.register <- client

	go client.writePump()
	sock.Welcome(client)
	client.readPump() // blocks; cancels ctx on exit
}
