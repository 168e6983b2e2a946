package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"satya-chat/internal/ws"
)

// WSHandler promueve la conexión HTTP al canal websocket y arranca las
// goroutines de lectura y escritura del cliente.
type WSHandler struct {
	logger     *zap.Logger
	registry   *ws.Registry
	dispatcher *ws.Dispatcher
	upgrader   websocket.Upgrader
}

func NewWSHandler(logger *zap.Logger, registry *ws.Registry, dispatcher *ws.Dispatcher) *WSHandler {
	return &WSHandler{
		logger:     logger,
		registry:   registry,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// El origen lo filtra el proxy de borde; el servidor acepta
			// cualquier origen igual que el servidor original.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle maneja GET /ws.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.logger, h.registry, h.dispatcher, conn)
	h.logger.Info("client connected", zap.String("client_id", client.ID))

	go client.WritePump()
	go client.ReadPump()
}
