package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/amanahlabs/tazkiyah/internal/events"
)

// EventsSocketHandler pushes domain events over a websocket for
// collaborators that hold a bidirectional connection open.
type EventsSocketHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsSocketHandler creates a new websocket events handler
func NewEventsSocketHandler(bus *events.Bus, log zerolog.Logger) *EventsSocketHandler {
	return &EventsSocketHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws
func (h *EventsSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-origin policy enforced upstream
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	eventChan := make(chan *events.Event, 100)
	h.bus.SubscribeAll(func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("event_type", string(event.Type)).Msg("Websocket channel full, dropping event")
		}
	})

	h.log.Info().Msg("Client connected to websocket event feed")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.log.Info().Err(err).Msg("Websocket client dropped")
				return
			}
		}
	}
}
