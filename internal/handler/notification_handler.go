package handler

import (
	"video-segmentation-be/internal/pkg/logger"
	internalWS "video-segmentation-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// NotificationHandler exposes the websocket endpoint observers use to
// follow session and propagation events in real time. The endpoint is
// open: events carry no user data, only session ids and frame counters.
type NotificationHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewNotificationHandler(hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		hub:    hub,
		logger: log,
	}
}

// ServeWs upgrades the connection and registers the observer. An optional
// ?sessionId= query param narrows delivery to one session's events.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	sessionFilter := c.Query("sessionId")

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("NotificationHandler", "Starting observer session", map[string]interface{}{"session_filter": sessionFilter})
			internalWS.ServeWs(h.hub, conn, sessionFilter)
			h.logger.Info("NotificationHandler", "Observer session ended", map[string]interface{}{"session_filter": sessionFilter})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the websocket route.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/progress", h.ServeWs)
}
