package middleware

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/configpkg"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// CreateLogger returns the process logger. Development mode writes human readable
// output with caller info at trace level.
func CreateLogger(config configpkg.Config) zerolog.Logger {
	logger := zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()

	if config.Environment == "development" {
		logger = logger.
			Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(zerolog.TraceLevel).
			With().
			Caller().
			Logger()
	}

	return logger
}

// RequestLogger attaches a request scoped logger to the request context and logs
// every request once it is handled.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		start := time.Now()

		requestID := gctx.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		gctx.Writer.Header().Set(RequestIDHeader, requestID)

		l := logger.With().Str("request_id", requestID).Logger()
		gctx.Request = gctx.Request.WithContext(l.WithContext(gctx.Request.Context()))

		gctx.Next()

		status := gctx.Writer.Status()

		event := l.Info()
		if status >= 500 {
			event = l.Error()
		}

		event.
			Str("client_ip", gctx.ClientIP()).
			Str("method", gctx.Request.Method).
			Str("path", gctx.Request.URL.Path).
			Int("status_code", status).
			Dur("latency", time.Since(start)).
			Msg(gctx.Errors.ByType(gin.ErrorTypePrivate).String())
	}
}
