package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	ws2 "github.com/codepair/codepair/lib/models/ws"
	"github.com/codepair/codepair/lib/settings"
	"github.com/codepair/codepair/lib/ws/ratelimiter"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn WebSocketConn
	// Buffered channel of outbound messages.
	Send chan []byte
	// ConnID identifies this connection; distinct from any session id.
	ConnID  string
	Ctx     *fiber.Ctx
	Handler *CollabMessageHandler

	sendMu     sync.Mutex
	sendClosed bool
}

// deliver enqueues message for the write pump, dropping it if the client
// cannot keep up. No acknowledgment, no retry.
func (c *Client) deliver(message []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.Send <- message:
	default:
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// readPump pumps messages from the websocket connection to the handler.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump(retrievedSettings *settings.Settings, logger *zap.SugaredLogger) {
	defer func() {
		c.Handler.HandleDisconnect(c, logger)
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(retrievedSettings.SocketIo.MaxHttpBufferSize)
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
		if c.Ctx != nil {
			if err := ratelimiter.CheckRateLimit(ratelimiter.IPAddress(c.Ctx.IP()), retrievedSettings.CommitRateLimiting); err != nil {
				logger.Warnw("rate limit exceeded", "ip", c.Ctx.IP())
				continue
			}
		}

		var envelope ws2.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			logger.Error("error unmarshalling envelope", err)
			continue
		}

		c.dispatch(envelope, logger)
	}
}

// dispatch decodes the per-event payload and hands it to the handler. Events
// from one connection are handled in receive order; malformed payloads are
// dropped.
func (c *Client) dispatch(envelope ws2.Envelope, logger *zap.SugaredLogger) {
	switch envelope.Event {
	case ws2.EventJoinSession:
		var join ws2.JoinSession
		if err := json.Unmarshal(envelope.Data, &join); err != nil {
			logger.Error("error unmarshalling", err)
			return
		}
		c.Handler.HandleJoinSession(c, join)
	case ws2.EventCodeChange:
		var change ws2.CodeChange
		if err := json.Unmarshal(envelope.Data, &change); err != nil {
			logger.Error("error unmarshalling", err)
			return
		}
		c.Handler.HandleCodeChange(c, change)
	case ws2.EventCursorChange:
		var cursor ws2.CursorChange
		if err := json.Unmarshal(envelope.Data, &cursor); err != nil {
			logger.Error("error unmarshalling", err)
			return
		}
		c.Handler.HandleCursorChange(c, cursor)
	case ws2.EventExecuteCode:
		var execute ws2.ExecuteCode
		if err := json.Unmarshal(envelope.Data, &execute); err != nil {
			logger.Error("error unmarshalling", err)
			return
		}
		c.Handler.HandleExecuteCode(c, execute)
	case ws2.EventEditHighlight:
		var highlight ws2.EditHighlight
		if err := json.Unmarshal(envelope.Data, &highlight); err != nil {
			// Dropped without error, e.g. a non-numeric lineNumber.
			return
		}
		c.Handler.HandleEditHighlight(c, highlight)
	case ws2.EventEditorError:
		var editorError ws2.EditorError
		if err := json.Unmarshal(envelope.Data, &editorError); err != nil {
			logger.Error("error unmarshalling", err)
			return
		}
		c.Handler.HandleEditorError(c, editorError)
	case ws2.EventLeaveSession:
		var leave ws2.LeaveSession
		if err := json.Unmarshal(envelope.Data, &leave); err != nil {
			logger.Error("error unmarshalling", err)
			return
		}
		c.Handler.HandleLeaveSession(c, leave)
	default:
		logger.Warnw("unknown event", "event", envelope.Event)
	}
}

// writePump pumps messages from the Send channel to the websocket connection.
// At most one writer per connection runs at a time.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) Leave() {
	c.Hub.Unregister <- c
}

// ServeWs handles websocket requests from the peer.
func ServeWs(w http.ResponseWriter, r *http.Request, fiberCtx *fiber.Ctx,
	configSettings *settings.Settings, logger *zap.SugaredLogger, handler *CollabMessageHandler) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := &Client{
		Hub:     handler.hub,
		Conn:    NewWebSocketWrapper(conn),
		Send:    make(chan []byte, 256),
		ConnID:  uuid.NewString(),
		Ctx:     fiberCtx,
		Handler: handler,
	}
	client.Hub.Register <- client
	go client.writePump()
	client.readPump(configSettings, logger)
}
