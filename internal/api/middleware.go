package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/auth"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxClaims = "claims"
	ctxUserID = "user_id"
)

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// corsMiddleware lets the browser front end call the API with a bearer token
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bearerToken reads the session token from the Authorization header. The SSE
// endpoint also accepts it as ?access_token= because EventSource cannot set
// headers.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("access_token")
}

// authMiddleware requires a valid, unrevoked session token
func authMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, apperr.ErrAuth)
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			respondError(c, apperr.Auth(apperr.ReasonSessionInvalid, "session invalid", err))
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// requireRole refuses callers signed in under another role
func requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentRole(c) != role {
			respondError(c, apperr.Unauthorized("this action requires a %s account", role))
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ctxClaims); ok {
		return v.(*auth.Claims)
	}
	return nil
}

func currentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserID); ok {
		return v.(uuid.UUID)
	}
	return uuid.Nil
}

func currentRole(c *gin.Context) models.Role {
	if claims := currentClaims(c); claims != nil {
		return claims.Role
	}
	return ""
}

// optionalViewer returns the caller's id on public routes that behave
// differently for the owner. Invalid tokens are treated as anonymous.
func (h *Handler) optionalViewer(c *gin.Context) *uuid.UUID {
	token := bearerToken(c)
	if token == "" {
		return nil
	}
	claims, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	id, err := claims.UserID()
	if err != nil {
		return nil
	}
	return &id
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}
