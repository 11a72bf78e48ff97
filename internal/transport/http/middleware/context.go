package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the caller-supplied trace id.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is where the trace id lives on the gin context.
	TraceIDKey = "trace_id"
	// AccountIDKey is where auth middleware stores the account id.
	AccountIDKey = "account_id"

	requestContextKey = "request_context"
)

// RequestContext bundles the per-request metadata handlers read most often.
type RequestContext struct {
	TraceID   string
	AccountID string
	IP        string
	UserAgent string
}

// EnrichContext assigns a trace id (reusing the caller's when present) and
// captures client metadata before handlers run.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the request's trace id, or "" outside EnrichContext.
func GetTraceID(c *gin.Context) string {
	id, _ := c.Value(TraceIDKey).(string)
	return id
}

// GetRequestContext never returns nil; callers can read fields directly.
func GetRequestContext(c *gin.Context) *RequestContext {
	if reqCtx, ok := c.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}
	return &RequestContext{}
}

// GetAccountID returns the authenticated account id, or "" when anonymous.
func GetAccountID(c *gin.Context) string {
	id, _ := c.Value(AccountIDKey).(string)
	return id
}
