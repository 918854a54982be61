package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Counsel/internal/core"
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("connection closed")

// Relay is the event sink a websocket feeds. *app.Relay implements it.
type Relay interface {
	Connect(sid core.ConnID, sig core.SignalConnection, ident *domain.Identity, cancel context.CancelFunc) bool
	Join(sid core.ConnID, name, role, room string)
	ClientMessage(sid core.ConnID, text string)
	CounselorFinal(sid core.ConnID, text string)
	CounselorRefine(sid core.ConnID, instruction string)
	Disconnect(sid core.ConnID)
}

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

type SignalWSController struct {
	Relay   Relay
	Limiter *RoomRateLimiter
	opts    Options
}

func NewSignalWSController(relay Relay, limiter *RoomRateLimiter, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	return &SignalWSController{
		Relay:   relay,
		Limiter: limiter,
		opts:    opts,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
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

// HandleSignal upgrades the request and runs the connection until either
// side goes away. ident is nil when the session carried no usable identity.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, ident *domain.Identity) {
	sid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Bool("identified", ident != nil).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	if !ctl.Relay.Connect(sid, conn, ident, cancel) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("relay stopped, rejecting connection")
		cancel()
		conn.Close()
		return
	}

	go ctl.writePump(ctx, sid, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
