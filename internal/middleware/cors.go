package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS allows browser clients from origin, "*" for any. Preflight requests end here.
func CORS(origin string) gin.HandlerFunc {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = "*"
	}

	return func(gctx *gin.Context) {
		h := gctx.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if origin != "*" {
			h.Add("Vary", "Origin")
		}

		if gctx.Request.Method == http.MethodOptions {
			gctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		gctx.Next()
	}
}
