package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pay-watch.backend/internal/interfaces/http/handlers"
	"pay-watch.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	paymentRequestHandler *handlers.PaymentRequestHandler
	transactionHandler    *handlers.TransactionHandler
	webhookHandler        *handlers.WebhookHandler
	apiKeyAuth            gin.HandlerFunc
	serviceTokenAuth      gin.HandlerFunc
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key, X-Request-ID, Idempotency-Key")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "pay-watch-backend",
			"version": "0.1.0",
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Public payment request view (for payers)
		v1.GET("/pay/:id", d.paymentRequestHandler.GetPublicPaymentRequest)

		// Payment request routes (merchant API keys)
		paymentRequests := v1.Group("/payment-requests")
		paymentRequests.Use(d.apiKeyAuth)
		{
			paymentRequests.POST("", middleware.IdempotencyMiddleware(), d.paymentRequestHandler.CreatePaymentRequest)
			paymentRequests.GET("", d.paymentRequestHandler.ListPaymentRequests)
			paymentRequests.GET("/:id", d.paymentRequestHandler.GetPaymentRequest)
			paymentRequests.POST("/:id/fail", d.paymentRequestHandler.FailPaymentRequest)
			paymentRequests.GET("/:id/transaction", d.transactionHandler.GetRequestTransaction)
		}

		// Transaction routes (merchant API keys)
		transactions := v1.Group("/transactions")
		transactions.Use(d.apiKeyAuth)
		{
			transactions.GET("", d.transactionHandler.ListTransactions)
			transactions.GET("/:id", d.transactionHandler.GetTransaction)
		}

		// Webhook for the verification oracle (internal)
		webhooks := v1.Group("/webhooks")
		webhooks.Use(d.serviceTokenAuth)
		{
			webhooks.POST("/verification", d.webhookHandler.HandleVerificationWebhook)
		}
	}
}
