package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bottlerun/exchange-api/internal/core/ports"
)

// MessageHandler exposes the per-order chat.
type MessageHandler struct {
	service ports.MessageService
}

func NewMessageHandler(service ports.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// List handles GET /orders/:id/messages.
//
// @Summary      List an order's messages, oldest first
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Order ID"
// @Success      200  {array}   domain.Message
// @Failure      403  {object}  map[string]string
// @Router       /orders/{id}/messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	userID, orderID, err := callerAndOrder(c)
	if err != nil {
		return err
	}
	msgs, err := h.service.List(c.Request().Context(), userID, orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}

// Send handles POST /orders/:id/messages.
//
// @Summary      Send a message to the other participant
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Order ID"
// @Param        body  body      sendMessageRequest  true  "Message"
// @Success      201   {object}  domain.Message
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /orders/{id}/messages [post]
func (h *MessageHandler) Send(c echo.Context) error {
	userID, orderID, err := callerAndOrder(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.service.Send(c.Request().Context(), userID, orderID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}
