package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/zapikart/shopify-mpwa/internal/handlers"
)

func SetupRoutes(
	r *gin.Engine,
	checkoutHandler *handlers.CheckoutHandler,
	webhookHandler *handlers.WebhookHandler,
	metricsHandler http.Handler,
) *gin.Engine {
	// ---- service
	r.GET("/", handlers.Root)
	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(metricsHandler))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ---- COD checkout (storefront)
	r.POST("/start-cod", checkoutHandler.StartCOD)
	r.POST("/verify-cod", checkoutHandler.VerifyCOD)

	// ---- commerce webhooks
	r.POST("/order-created", webhookHandler.OrderCreated)
	r.POST("/order-updated", webhookHandler.OrderUpdated)
	r.POST("/order-cancelled", webhookHandler.OrderCancelled)

	return r
}
