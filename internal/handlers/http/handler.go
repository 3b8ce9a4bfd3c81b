package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/NAJJJB/subscription-tracker/internal/models"
	"github.com/NAJJJB/subscription-tracker/internal/notifier"
	"github.com/NAJJJB/subscription-tracker/internal/services/broadcast"
	"github.com/NAJJJB/subscription-tracker/internal/services/operator"
	"github.com/NAJJJB/subscription-tracker/internal/services/subscriptions"
)

const (
	timeoutDuration = 10 * time.Second

	HeaderUserID        = "X-User-ID"
	HeaderOperatorToken = "X-Operator-Token"

	userIDKey = "userID"
)

type subscriptionService interface {
	RegisterUser(ctx context.Context, id, name string) error
	Dashboard(ctx context.Context, userID string) (subscriptions.Dashboard, error)
	Create(ctx context.Context, userID string, in models.SubscriptionInput) (models.Subscription, error)
	Update(ctx context.Context, userID, oldName string, in models.SubscriptionInput) (models.Subscription, error)
	Delete(ctx context.Context, userID, name string) error
	SetWebhook(ctx context.Context, userID, url string) error
	SetCurrency(ctx context.Context, userID, currency string) error
}

type renewalPipeline interface {
	RunDue(ctx context.Context) (notifier.RunResult, error)
}

type broadcaster interface {
	Broadcast(ctx context.Context, title, text string) (broadcast.Summary, error)
}

type operatorAuth interface {
	Login(ctx context.Context, userID, secret string) (operator.Token, error)
	Authorize(ctx context.Context, userID, token string) error
	Logout(ctx context.Context, userID, token string) error
}

type Handler struct {
	subs      subscriptionService
	pipeline  renewalPipeline
	broadcast broadcaster
	operator  operatorAuth
	logger    zerolog.Logger
}

func NewHandler(
	subs subscriptionService,
	pipeline renewalPipeline,
	b broadcaster,
	op operatorAuth,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		subs:      subs,
		pipeline:  pipeline,
		broadcast: b,
		operator:  op,
		logger:    logger.With().Str("component", "HTTPHandler").Logger(),
	}
}

// Register mounts the API routes under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/users", h.RegisterUser)

	me := api.Group("/me", RequireUser())
	me.GET("/subscriptions", h.ListSubscriptions)
	me.POST("/subscriptions", h.CreateSubscription)
	me.PUT("/subscriptions/:name", h.UpdateSubscription)
	me.DELETE("/subscriptions/:name", h.DeleteSubscription)
	me.PUT("/webhook", h.SetWebhook)
	me.PUT("/currency", h.SetCurrency)

	api.POST("/notifications/check", RequireUser(), h.CheckNotifications)

	op := api.Group("/operator", RequireUser())
	op.POST("/login", h.OperatorLogin)
	op.POST("/logout", h.OperatorLogout)
	op.POST("/broadcast", h.Broadcast)
}

// RequireUser rejects requests that do not carry an authenticated user id.
// Authentication itself happens upstream.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subscriptions.ErrInvalidInput), errors.Is(err, broadcast.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not registered"})
	case errors.Is(err, models.ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
	case errors.Is(err, models.ErrSubscriptionExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Subscription already exists"})
	case errors.Is(err, operator.ErrSecretMismatch), errors.Is(err, operator.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, operator.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, operator.ErrIdentityMismatch), errors.Is(err, operator.ErrNotConfigured):
		c.JSON(http.StatusForbidden, gin.H{"error": "Operator access required"})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
