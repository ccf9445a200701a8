// Package signal adapts WebSocket connections onto the relay hub.
package signal

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkrylov/camstream/internal/config"
	"github.com/dkrylov/camstream/internal/core"
	"github.com/dkrylov/camstream/internal/relay"
)

var ErrBackpressure = errors.New("backpressure")
var ErrConnClosed = errors.New("connection closed")

type WSController struct {
	Hub *relay.Hub
	Cfg config.Signaling
}

func NewWSController(hub *relay.Hub, cfg config.Signaling) *WSController {
	return &WSController{Hub: hub, Cfg: cfg}
}

// wsConn is the transport half of a signaling connection: a gorilla conn plus
// a buffered outbound channel drained by the write pump.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and hands the connection to the hub with
// role unknown. The role is bound later by an explicit declaration frame.
func (ctl *WSController) HandleSignal(c *gin.Context) {
	id := uuid.NewString()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("conn", id).Str("remote", ws.RemoteAddr().String()).
		Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}
	ctl.Hub.Join(id, conn)

	go ctl.writePump(conn)
	go ctl.readPump(id, conn)
}
