package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/room"
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("send queue full")
)

// ErrorPayload is the data of an error event sent to a single connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// envelope is the inbound wire frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// inboundMessage is the data of an inbound event-message. ProjectID and Sender
// are informational; the connection's admission decides both.
type inboundMessage struct {
	Message   string `json:"message"`
	ProjectID string `json:"projectId,omitempty"`
	Sender    string `json:"sender,omitempty"`
}

// Conn is one admitted websocket connection. It is a room member.
type Conn struct {
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	once         sync.Once
	limiter      *rate.Limiter
	pingEvery    time.Duration
	pongWait     time.Duration
	writeTimeout time.Duration
}

func newConn(ws *websocket.Conn, cfg Config) *Conn {
	return &Conn{
		ws:           ws,
		send:         make(chan []byte, cfg.SendQueue),
		done:         make(chan struct{}),
		limiter:      rate.NewLimiter(rate.Limit(cfg.MessageRate), cfg.MessageBurst),
		pingEvery:    cfg.PingInterval,
		pongWait:     cfg.PingInterval * 2,
		writeTimeout: cfg.WriteTimeout,
	}
}

// Deliver queues evt for the write pump. A full queue closes the connection.
func (c *Conn) Deliver(evt room.Event) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		metrics.WSSlowConsumersTotal.Inc()
		c.close()
		return errSlowConsumer
	}
}

// close stops both pumps. Safe to call more than once.
func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump writes queued events and keepalive pings until the connection closes.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump reads frames in receipt order and hands chat text to onMessage.
// It returns when the peer goes away or the connection is closed.
func (c *Conn) readPump(ctx context.Context, maxBytes int64, onMessage func(ctx context.Context, text string)) {
	c.ws.SetReadLimit(maxBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime read error: %v", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError("malformed frame")
			continue
		}
		if env.Event != EventMessage {
			c.sendError("unknown event: " + env.Event)
			continue
		}

		var in inboundMessage
		if err := json.Unmarshal(env.Data, &in); err != nil {
			c.sendError("malformed message")
			continue
		}

		if !c.limiter.Allow() {
			metrics.MessagesRateLimited.Inc()
			c.sendError("rate limit exceeded, slow down")
			continue
		}

		onMessage(ctx, in.Message)
	}
}

// sendError delivers an error event to this connection only.
func (c *Conn) sendError(message string) {
	_ = c.Deliver(room.Event{Name: EventError, Data: ErrorPayload{Message: message}})
}
