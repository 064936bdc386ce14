package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/upl_backend/utils"
	"go.opentelemetry.io/otel/trace"
)

// SessionMiddleware seeds the request context with the initiator identity
// and a correlation id. Authentication itself happens upstream (gateway);
// this service trusts the forwarded headers.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if initiatorId := c.Request.Header.Get("X-Initiator-Id"); initiatorId != "" {
			ctx = utils.SetInitiatorIdInContext(ctx, initiatorId)
		}
		if initiatorName := c.Request.Header.Get("X-Initiator-Name"); initiatorName != "" {
			ctx = utils.SetInitiatorNameInContext(ctx, initiatorName)
		}

		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
				correlationId = span.SpanContext().TraceID().String()
			} else {
				correlationId = uuid.NewString()
			}
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("X-Correlation-Id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
