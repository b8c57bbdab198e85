package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Space/internal/app"
	"github.com/dkeye/Space/internal/config"
	"github.com/dkeye/Space/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// SignalWSController owns the websocket side of the relay: it upgrades
// connections, assigns session ids and translates wire frames into
// dispatcher events.
type SignalWSController struct {
	Disp    *app.Dispatcher
	Limiter *TickRateLimiter
	cfg     *config.Config
}

func NewSignalWSController(cfg *config.Config, disp *app.Dispatcher) *SignalWSController {
	return &SignalWSController{
		Disp:    disp,
		Limiter: NewTickRateLimiter(cfg.TickLimit, cfg.TickInterval),
		cfg:     cfg,
	}
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
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

// HandleSignal upgrades the request and runs the connection lifecycle. The
// session id is fresh per connection; the browser cookie token only ties
// log lines of the same client together.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Disp.Connect(sid, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
