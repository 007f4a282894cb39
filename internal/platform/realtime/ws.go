package realtime

import (
	"net/http"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// WebSocketHandler bridges hub subscriptions onto WebSocket connections so a
// dashboard can watch one patient's workflow in real time.
type WebSocketHandler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewWebSocketHandler creates a new handler bound to the given Hub.
func NewWebSocketHandler(hub *Hub, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// RegisterRoutes registers the per-patient WebSocket endpoint.
func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients/:id/workflow/ws", wsh.HandleConnect)
}

// HandleConnect upgrades the connection, subscribes it to the patient's
// workflow events, and pumps events to the socket until either side closes.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := wsh.hub.Subscribe(patientID)

	go wsh.writePump(sub, ws)
	go wsh.readPump(sub, ws)

	return nil
}

// readPump discards inbound frames and unsubscribes when the client goes away.
func (wsh *WebSocketHandler) readPump(sub *Subscription, ws *gorillawebsocket.Conn) {
	defer func() {
		sub.Close()
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump forwards subscription events to the socket as JSON frames.
func (wsh *WebSocketHandler) writePump(sub *Subscription, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for event := range sub.Events() {
		if err := ws.WriteJSON(event); err != nil {
			wsh.logger.Debug().
				Err(err).
				Str("patient_id", sub.PatientID().String()).
				Msg("websocket write failed, dropping subscriber")
			sub.Close()
			break
		}
	}
}
