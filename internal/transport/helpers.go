package transport

import (
	"net/http"
	"time"

	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var corsAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type", "x-request-id"}

// CORS answers preflights with permissive headers before any handler runs, so storage
// health never affects them.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    corsAllowHeaders,
		ExposeHeaders:   []string{mwlogger.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	})
}

func setPermissiveCORS(ctx *gin.Context) {
	ctx.Header("Access-Control-Allow-Origin", "*")
	ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	ctx.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, x-request-id")
}

// RecoveryJSON keeps the JSON contract even when a handler panics.
func RecoveryJSON() gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Interface("panic", recovered).Msg("Handler panicked")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, model.FailedResult(model.ErrUnexpected.Error()))
	})
}
