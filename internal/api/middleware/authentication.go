package middleware

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/utils/hashutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const APIKeyHeader = "X-API-Key"

func AuthenticationMiddleware(ctx *gin.Context) {
	apikey := ctx.Request.Header.Get(APIKeyHeader)
	app := ctx.MustGet("app").(*app.App)

	if app.APIKeyRepository == nil {
		app.Logger.Error("authentication is enabled but no database is configured")
		abort(ctx, http.StatusInternalServerError, "API key store is not configured")
		return
	}

	if apikey == "" {
		if ctx.Request.Header.Get("Authorization") != "" {
			abort(ctx, http.StatusUnauthorized, "Token based authorization is not allowed")
			return
		}

		abort(ctx, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	apikeyHash := hashutil.Sha3256Hash([]byte(apikey))
	result, err := app.APIKeyRepository.GetAPIKeyWithHash(ctx.Request.Context(), apikeyHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			abort(ctx, http.StatusUnauthorized, "The provided API key is invalid")
			return
		}

		app.Logger.Error("Database error while checking API key", zap.Error(err))
		abort(ctx, http.StatusInternalServerError, "Internal server error checking api-keys in database")
		return
	}

	if result.IsRevoked {
		abort(ctx, http.StatusUnauthorized, "The provided API key is revoked")
		return
	}

	ctx.Next()
}

func abort(ctx *gin.Context, status int, detail string) {
	ctx.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
