package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zapikart/shopify-mpwa/internal/models"
	"github.com/zapikart/shopify-mpwa/internal/services"
)

type WebhookHandler struct {
	Events *services.OrderEventsService
}

func NewWebhookHandler(events *services.OrderEventsService) *WebhookHandler {
	return &WebhookHandler{Events: events}
}

// @Summary  Order created webhook
// @Tags     Webhooks
// @Accept   json
// @Param    order  body  models.Order  true  "Commerce order"
// @Success  200
// @Router   /order-created [post]
func (h *WebhookHandler) OrderCreated(c *gin.Context) { h.handle(c, services.OrderCreated) }

// @Summary  Order updated webhook
// @Tags     Webhooks
// @Accept   json
// @Param    order  body  models.Order  true  "Commerce order"
// @Success  200
// @Router   /order-updated [post]
func (h *WebhookHandler) OrderUpdated(c *gin.Context) { h.handle(c, services.OrderUpdated) }

// @Summary  Order cancelled webhook
// @Tags     Webhooks
// @Accept   json
// @Param    order  body  models.Order  true  "Commerce order"
// @Success  200
// @Router   /order-cancelled [post]
func (h *WebhookHandler) OrderCancelled(c *gin.Context) { h.handle(c, services.OrderCancelled) }

// handle отвечает платформе пустым 200 сразу после постановки сообщения в отправку.
func (h *WebhookHandler) handle(c *gin.Context, ev services.OrderEvent) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		slog.Warn("[webhook] bad payload", "event", ev, "error", err)
		c.Status(http.StatusBadRequest)
		return
	}
	h.Events.Handle(ev, &order)
	c.Status(http.StatusOK)
}
