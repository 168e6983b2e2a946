package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	sendBufferSize = 256
)

// Client es el handle opaco de una conexión websocket.
type Client struct {
	ID         string
	logger     *zap.Logger
	conn       *websocket.Conn
	send       chan outbound
	registry   *Registry
	dispatcher *Dispatcher
}

func NewClient(logger *zap.Logger, registry *Registry, dispatcher *Dispatcher, conn *websocket.Conn) *Client {
	return &Client{
		ID:         uuid.NewString(),
		logger:     logger,
		conn:       conn,
		send:       make(chan outbound, sendBufferSize),
		registry:   registry,
		dispatcher: dispatcher,
	}
}

// Push encola un evento saliente sin bloquear. Si el buffer del receptor
// está lleno el push se descarta: la entrega en vivo es at-most-once y el
// estado persistido es la fuente de verdad.
func (c *Client) Push(event string, data any) {
	select {
	case c.send <- outbound{Event: event, Data: data}:
	default:
		c.logger.Warn("send buffer full, dropping event",
			zap.String("client_id", c.ID), zap.String("event", event))
	}
}

// ReadPump lee y despacha eventos de la conexión. Los handlers corren en
// secuencia sobre esta goroutine: los envíos de un mismo emisor se
// persisten y difunden en orden. Al salir limpia la presencia.
func (c *Client) ReadPump() {
	defer func() {
		c.registry.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("malformed envelope", zap.String("client_id", c.ID), zap.Error(err))
			continue
		}
		c.dispatcher.Dispatch(c, env)
	}
}

// WritePump escribe la cola de salida y mantiene el keepalive. Si la
// conexión ya murió, los writes fallan y las respuestas pendientes se
// descartan sin afectar al resto del proceso.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
