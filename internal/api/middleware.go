package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
)

const (
	requestIDHeader = "X-Request-ID"
	cronHeader      = "X-Cron-Secret"

	ctxRequestID = "request_id"
	ctxUser      = "user"
)

// RequestID tags each request with an id, reusing a well-formed incoming
// X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one line per request.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []any{
			"request_id", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if u, ok := currentUser(c); ok {
			kv = append(kv, "user_id", u.ID)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request failed", kv...)
		case status >= 400:
			log.Warn("request rejected", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}

// CORS allows the listed browser origins.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// TokenParser resolves a bearer token to a user id. *auth.Tokens
// implements it.
type TokenParser interface {
	Parse(token string) (int, error)
}

// RequireAuth loads the bearer token's user into the context.
func RequireAuth(tokens TokenParser, users store.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respondError(c, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
			return
		}
		id, err := tokens.Parse(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token")
			return
		}
		user, err := users.Get(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusUnauthorized, CodeUnauthorized, "unknown user")
			return
		}
		if err != nil {
			respondInternal(c, err)
			return
		}
		c.Set(ctxUser, *user)
		c.Next()
	}
}

// RequireCronSecret accepts the secret from ?key= or X-Cron-Secret.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.Query("key")
		if got == "" {
			got = c.GetHeader(cronHeader)
		}
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			respondError(c, http.StatusForbidden, CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func currentUser(c *gin.Context) (store.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return store.User{}, false
	}
	u, ok := v.(store.User)
	return u, ok
}
