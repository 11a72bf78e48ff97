package logger

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey stores the correlation id on a context.
type RequestIDKey struct{}

var (
	global     *zap.Logger
	initGlobal sync.Once
)

// New builds the process-wide zap logger. Production gets JSON output;
// anything else gets the colored console encoder. Repeated calls return the
// logger built on the first call.
func New(env string) (*zap.Logger, error) {
	var err error
	initGlobal.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		global, err = cfg.Build()
	})
	return global, err
}

// WithContext returns the global logger enriched with the request id carried
// on the context, when present.
func WithContext(ctx context.Context) *zap.Logger {
	if global == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return global
	}
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		return global.With(zap.String("request_id", id))
	}
	return global
}

// Keeps up to three leading characters of the local part plus the domain.
var emailMask = regexp.MustCompile(`^([^@]{1,3})[^@]*(@.+)$`)

// MaskEmail redacts the local part of an address so logs never carry a full
// email. john.doe@example.com becomes joh***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	if m := emailMask.FindStringSubmatch(email); len(m) == 3 {
		return m[1] + "***" + m[2]
	}

	if parts := strings.SplitN(email, "@", 2); len(parts) == 2 {
		return "***@" + parts[1]
	}
	return "***"
}

// MaskIP drops the final octet of an IPv4 address or the last group of an
// IPv6 address before logging.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	if dot := strings.LastIndex(ip, "."); dot > 0 {
		return ip[:dot] + ".***"
	}
	if colon := strings.LastIndex(ip, ":"); colon > 0 {
		return ip[:colon] + ":***"
	}
	return "***"
}

// MaskString keeps only the outermost characters of a secret-bearing value.
func MaskString(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return "***"
	}
	return string(runes[:2]) + "***" + string(runes[len(runes)-2:])
}
