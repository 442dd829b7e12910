package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bottlerun/exchange-api/internal/core/ports"
)

// OrderHandler handles HTTP requests for the order lifecycle.
type OrderHandler struct {
	service ports.OrderService
}

func NewOrderHandler(service ports.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Create handles POST /orders.
//
// @Summary      Place an exchange order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createOrderRequest  true  "Order details"
// @Success      201   {object}  createOrderResponse
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /orders [post]
func (h *OrderHandler) Create(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req createOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	details, err := req.details()
	if err != nil {
		return err
	}

	res, err := h.service.Create(c.Request().Context(), userID, details)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createOrderResponse{
		OrderID:          res.OrderID,
		VerificationCode: res.VerificationCode,
	})
}

// ListPending handles GET /orders.
//
// @Summary      List pending orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   orderResponse
// @Router       /orders [get]
func (h *OrderHandler) ListPending(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	orders, err := h.service.ListPending(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponses(orders, userID))
}

// ListMine handles GET /my-orders.
//
// @Summary      List the caller's orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   orderResponse
// @Router       /my-orders [get]
func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	orders, err := h.service.ListMine(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponses(orders, userID))
}

// Accept handles POST /orders/:id/accept.
//
// @Summary      Accept a pending order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Order ID"
// @Success      200  {object}  orderStatusResponse
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /orders/{id}/accept [post]
func (h *OrderHandler) Accept(c echo.Context) error {
	userID, orderID, err := callerAndOrder(c)
	if err != nil {
		return err
	}
	order, err := h.service.Accept(c.Request().Context(), userID, orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orderStatusResponse{OrderID: order.ID, Status: order.Status})
}

// RequestVerification handles POST /orders/:id/request-verification.
//
// @Summary      Ask the client app to show its verification code
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Order ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /orders/{id}/request-verification [post]
func (h *OrderHandler) RequestVerification(c echo.Context) error {
	userID, orderID, err := callerAndOrder(c)
	if err != nil {
		return err
	}
	if err := h.service.RequestVerification(c.Request().Context(), userID, orderID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "verification requested"})
}

// Complete handles POST /orders/:id/complete.
//
// @Summary      Complete an accepted order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                   true  "Order ID"
// @Param        body  body      completeOrderRequest  true  "Verification code"
// @Success      200   {object}  orderStatusResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c echo.Context) error {
	userID, orderID, err := callerAndOrder(c)
	if err != nil {
		return err
	}
	var req completeOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.Complete(c.Request().Context(), userID, orderID, string(req.VerificationCode))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orderStatusResponse{OrderID: order.ID, Status: order.Status})
}

// Cancel handles POST /orders/:id/cancel.
//
// @Summary      Cancel an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true   "Order ID"
// @Param        body  body      cancelOrderRequest  false  "Reason"
// @Success      200   {object}  orderStatusResponse
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c echo.Context) error {
	userID, orderID, err := callerAndOrder(c)
	if err != nil {
		return err
	}
	var req cancelOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.Cancel(c.Request().Context(), userID, orderID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orderStatusResponse{OrderID: order.ID, Status: order.Status})
}

func callerAndOrder(c echo.Context) (userID, orderID int64, err error) {
	if userID, err = callerID(c); err != nil {
		return 0, 0, err
	}
	if orderID, err = orderIDParam(c); err != nil {
		return 0, 0, err
	}
	return userID, orderID, nil
}
