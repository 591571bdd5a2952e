package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewRateLimiter builds a per-client-IP limiter from a formatted rate such
// as "100-S" or "1000-H".
func NewRateLimiter(rate string) (gin.HandlerFunc, error) {
	limit, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rate, err)
	}

	instance := limiter.New(memory.NewStore(), limit)
	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(ctx *gin.Context) {
		abort(ctx, http.StatusTooManyRequests, "Too many requests")
	})), nil
}
