package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

const (
	streamBufferSize = 32
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10

	// Connection attempts per client IP.
	streamRateLimit  = rate.Limit(1)
	streamRateBurst  = 5
	streamRateWindow = 5 * time.Minute
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers always send Origin on upgrade; reject cross-site ones.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// streamMessage is one frame sent to a stream client.
type streamMessage struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	Alert    *entities.Alert `json:"alert,omitempty"`
}

// initStreamRoutes registers the live alert websocket.
func (c *Controller) initStreamRoutes() {
	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      streamRateLimit,
				Burst:     streamRateBurst,
				ExpiresIn: streamRateWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many stream connection attempts, please wait before trying again",
			})
		},
	}

	c.Group.GET("/alerts/stream", c.StreamAlerts, middleware.RateLimiterWithConfig(rateLimiterConfig))
}

// StreamAlerts pushes every newly raised alert to the client over a
// websocket. Slow clients lose alerts rather than blocking the feed.
func (c *Controller) StreamAlerts(ctx echo.Context) error {
	conn, err := streamUpgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		c.log.Debug("alert stream upgrade failed", logger.Error(err))
		return nil
	}
	defer func() { _ = conn.Close() }()

	clientID := uuid.NewString()
	log := c.log.With(logger.String("client_id", clientID))

	alerts := make(chan *entities.Alert, streamBufferSize)
	unsubscribe := c.feed.Subscribe(func(alert *entities.Alert) {
		select {
		case alerts <- alert:
		default:
			log.Warn("alert stream buffer full, dropping alert",
				logger.Uint64("alert_id", uint64(alert.ID)))
		}
	})
	defer unsubscribe()

	log.Info("alert stream client connected")
	defer log.Info("alert stream client disconnected")

	// The read loop only handles control frames and detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeStreamJSON(conn, streamMessage{Type: "connected", ClientID: clientID}); err != nil {
		return nil
	}

	pingTicker := time.NewTicker(streamPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-closed:
			return nil
		case <-ctx.Request().Context().Done():
			return nil
		case alert := <-alerts:
			if err := writeStreamJSON(conn, streamMessage{Type: "alert", Alert: alert}); err != nil {
				log.Debug("alert stream write failed", logger.Error(err))
				return nil
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func writeStreamJSON(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}
