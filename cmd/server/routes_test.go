package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"pay-watch.backend/internal/interfaces/http/handlers"
)

func TestRegisterAPIV1Routes_RegistersKeyRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	registerAPIV1Routes(r, routeDeps{
		paymentRequestHandler: &handlers.PaymentRequestHandler{},
		transactionHandler:    &handlers.TransactionHandler{},
		webhookHandler:        &handlers.WebhookHandler{},
		apiKeyAuth:            func(c *gin.Context) { c.Next() },
		serviceTokenAuth:      func(c *gin.Context) { c.Next() },
	})

	routes := r.Routes()
	if len(routes) < 9 {
		t.Fatalf("expected all routes registered, got %d", len(routes))
	}

	expects := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/pay/:id"},
		{"POST", "/api/v1/payment-requests"},
		{"GET", "/api/v1/payment-requests"},
		{"GET", "/api/v1/payment-requests/:id"},
		{"POST", "/api/v1/payment-requests/:id/fail"},
		{"GET", "/api/v1/payment-requests/:id/transaction"},
		{"GET", "/api/v1/transactions"},
		{"GET", "/api/v1/transactions/:id"},
		{"POST", "/api/v1/webhooks/verification"},
	}

	for _, exp := range expects {
		found := false
		for _, route := range routes {
			if route.Method == exp.method && route.Path == exp.path {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("route %s %s not registered", exp.method, exp.path)
		}
	}
}

func TestRegisterAPIV1Routes_RouteResponds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerHealthRoute(r)
	registerAPIV1Routes(r, routeDeps{
		paymentRequestHandler: &handlers.PaymentRequestHandler{},
		transactionHandler:    &handlers.TransactionHandler{},
		webhookHandler:        &handlers.WebhookHandler{},
		apiKeyAuth:            func(c *gin.Context) { c.Next() },
		serviceTokenAuth:      func(c *gin.Context) { c.Next() },
	})

	// Smoke: unrelated helper route still works after route registration.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
