package controller

import (
	"log"

	"github.com/gofiber/websocket/v2"

	"momentum/events"
)

// StreamEvents forwards workspace lifecycle events over a websocket. The
// membership check and workspaceID local are handled by the route
// middleware before the connection upgrades.
func StreamEvents(bus *events.Bus, logger *log.Logger) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		workspaceID, ok := conn.Locals("workspaceID").(uint)
		if !ok {
			return
		}

		ch, cancel := bus.Subscribe()
		defer cancel()

		// Drain reads so close frames from the client are noticed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case event, open := <-ch:
				if !open {
					return
				}
				if event.WorkspaceID != workspaceID {
					continue
				}
				msg := map[string]interface{}{
					"event":       event.Name,
					"workspaceId": event.WorkspaceID,
					"data":        event.Data,
				}
				if err := conn.WriteJSON(msg); err != nil {
					logger.Printf("Websocket write failed for workspace %d: %v", workspaceID, err)
					return
				}
			}
		}
	}
}
