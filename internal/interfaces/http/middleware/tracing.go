package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing instruments HTTP handling with OpenTelemetry spans and tags each
// span with the request ID so traces and logs can be joined
func Tracing(serviceName string) gin.HandlerFunc {
	otelMiddleware := otelgin.Middleware(serviceName)
	return func(c *gin.Context) {
		otelMiddleware(c)
	}
}

// AnnotateSpan adds request-scoped attributes to the active span. It must
// run after RequestID and Tracing.
func AnnotateSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := GetRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("http.request_id", requestID))
			}
			if claims, ok := GetClaims(c); ok && claims.TenantID != nil {
				span.SetAttributes(attribute.String("tenant.id", *claims.TenantID))
			}
		}
		c.Next()
	}
}
