package server

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"taskhub/internal/domain/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Authenticate resolves the bearer token into the authenticated principal.
// Every failure mode collapses to 401; the distinction between a bad
// signature and an expired token is logged but never exposed to the caller.
func (api *TaskAPI) Authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			sendError(ctx, http.StatusUnauthorized, errors.ErrUnauthorized.Error())
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		userID, err := api.tokens.Verify(token)
		if err != nil {
			log.Printf("[WARN] token verification failed for %s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)
			sendError(ctx, http.StatusUnauthorized, errors.ErrUnauthorized.Error())
			return
		}

		user, err := api.userRepo.GetUserByID(ctx.Request.Context(), userID)
		if err != nil {
			// A stale token may outlive its account.
			sendError(ctx, http.StatusUnauthorized, errors.ErrUserGone.Error())
			return
		}
		if !user.Active {
			sendError(ctx, http.StatusUnauthorized, errors.ErrAccountDeactivated.Error())
			return
		}

		principal := *user
		principal.Password = ""
		ctx.Set(principalKey, &principal)
		ctx.Next()
	}
}

// RequireRoles gates a route to the given roles. It must run after
// Authenticate.
func RequireRoles(roles ...string) gin.HandlerFunc {
	permitted := make(map[string]bool, len(roles))
	for _, role := range roles {
		permitted[role] = true
	}
	return func(ctx *gin.Context) {
		user := currentUser(ctx)
		if user == nil {
			sendError(ctx, http.StatusUnauthorized, errors.ErrUnauthorized.Error())
			return
		}
		if !permitted[user.Role] {
			sendError(ctx, http.StatusForbidden,
				fmt.Sprintf("user role '%s' is not authorized to access this route", user.Role))
			return
		}
		ctx.Next()
	}
}

// CORSMiddleware allows the configured frontend origin to call the API.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		if origin != "" && (allowedOrigin == "*" || strings.EqualFold(origin, allowedOrigin)) {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Vary", "Origin")
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}

type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func (cl *clientLimiter) allow(clientIP string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	limiter, exists := cl.limiters[clientIP]
	if !exists {
		limiter = rate.NewLimiter(cl.limit, cl.burst)
		cl.limiters[clientIP] = limiter
	}
	return limiter.Allow()
}

// RateLimit throttles each client IP to max requests per window using a
// token bucket. A non-positive max disables throttling.
func RateLimit(cfg *Config) gin.HandlerFunc {
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}

	cl := &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(cfg.RateLimitMax) / cfg.RateLimitWindow.Seconds()),
		burst:    cfg.RateLimitMax,
	}

	return func(ctx *gin.Context) {
		if !cl.allow(ctx.ClientIP()) {
			sendError(ctx, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		ctx.Next()
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	gw *gzip.Writer
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	return w.gw.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return io.WriteString(w.gw, s)
}

// GzipResponse compresses response bodies for clients that accept gzip.
func GzipResponse() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodHead {
			ctx.Next()
			return
		}
		if !strings.Contains(strings.ToLower(ctx.GetHeader("Accept-Encoding")), "gzip") {
			ctx.Next()
			return
		}

		ctx.Header("Content-Encoding", "gzip")
		ctx.Header("Vary", "Accept-Encoding")

		gw := gzip.NewWriter(ctx.Writer)
		wrapped := &gzipWriter{ResponseWriter: ctx.Writer, gw: gw}
		ctx.Writer = wrapped

		defer func() {
			ctx.Header("Content-Length", "")
			_ = gw.Close()
		}()

		ctx.Next()
	}
}
