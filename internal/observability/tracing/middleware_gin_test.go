package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

func TestGinMiddlewareExtractsTraceparent(t *testing.T) {
	SetPropagator()
	gin.SetMode(gin.TestMode)

	var got trace.SpanContext
	engine := gin.New()
	engine.Use(GinMiddleware())
	engine.GET("/ping", func(c *gin.Context) {
		got = trace.SpanContextFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if !got.IsValid() {
		t.Fatal("expected a valid remote span context")
	}
	if got.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("unexpected trace id %s", got.TraceID())
	}
	if !got.IsRemote() {
		t.Fatal("expected span context flagged remote")
	}
}

func TestGinMiddlewareWithoutHeaders(t *testing.T) {
	SetPropagator()
	gin.SetMode(gin.TestMode)

	var got trace.SpanContext
	engine := gin.New()
	engine.Use(GinMiddleware())
	engine.GET("/ping", func(c *gin.Context) {
		got = trace.SpanContextFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got.IsValid() {
		t.Fatal("expected no span context when no headers are present")
	}
}
