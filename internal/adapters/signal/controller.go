// Package signal owns the server end of the live-session channel: the
// websocket upgrade at /ws and the per-connection read/write pumps that
// feed the hub.
package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/helegran/liveclass/internal/hub"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Hub        *hub.Hub
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(h *hub.Hub, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{Hub: h, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

// HandleSignal upgrades the request and registers the connection with the
// hub for the rest of its lifetime.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWSConn(hub.ConnID(uuid.NewString()), ws)
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Msg("new WS connection")

	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	ctl.Hub.Add(conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	pinger := time.NewTicker(ctl.pingPeriod())
	defer pinger.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-pinger.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")
		ctl.Hub.Remove(c.id)
		c.Close()
		cancel()
	}()

	pongWait := ctl.pingPeriod() * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
				return
			}
			ctl.Hub.HandleFrame(c, data)
		}
	}
}

func (ctl *Controller) pingPeriod() time.Duration {
	if ctl.PingPeriod <= 0 {
		return 54 * time.Second
	}
	return ctl.PingPeriod
}
