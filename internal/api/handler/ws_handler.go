package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/api/middleware"
	"github.com/bottlerun/exchange-api/internal/notify"
)

// WSHandler upgrades authenticated clients to a push channel.
type WSHandler struct {
	registry  *notify.Registry
	jwtSecret string
	cfg       notify.ConnConfig
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

func NewWSHandler(registry *notify.Registry, jwtSecret string, cfg notify.ConnConfig, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry:  registry,
		jwtSecret: jwtSecret,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Mobile clients connect without a browser Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Connect handles GET /ws?token=<jwt>.
//
// The handshake always completes; a missing or invalid token is answered with
// close code 1008 before the registry is touched.
//
// @Summary      Open the notification channel
// @Tags         realtime
// @Param        token  query  string  true  "JWT"
// @Success      101
// @Router       /ws [get]
func (h *WSHandler) Connect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	conn := notify.NewConn(uuid.NewString(), ws, h.cfg, h.logger)

	token := c.QueryParam("token")
	if token == "" {
		conn.Close(websocket.ClosePolicyViolation, "missing token")
		return nil
	}
	id, err := middleware.ParseToken(h.jwtSecret, token)
	if err != nil {
		conn.Close(websocket.ClosePolicyViolation, "invalid token")
		return nil
	}

	h.registry.Register(id.UserID, id.Role, conn)
	h.logger.Info().Int64("user_id", id.UserID).Str("role", string(id.Role)).Str("conn_id", conn.ID()).Msg("channel registered")

	conn.Serve(h.registry, id.UserID)
	h.logger.Info().Int64("user_id", id.UserID).Str("conn_id", conn.ID()).Msg("channel closed")
	return nil
}
