package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NAJJJB/subscription-tracker/internal/models"
)

// RegisterUser
// @Summary Register user
// @Description Records a user and display name on first login. Repeat calls keep the first name.
// @Tags users
// @Accept json
// @Param body body registerRequest true "User"
// @Success 204
// @Failure 400
// @Router /api/users [post]
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.subs.RegisterUser(ctx, req.ID, req.Name); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubscriptions
// @Summary List subscriptions
// @Description Returns the caller's subscriptions with monthly and yearly spend.
// @Tags subscriptions
// @Produce json
// @Param X-User-ID header string true "Authenticated user id"
// @Success 200 {object} dashboardView
// @Failure 401
// @Failure 404
// @Router /api/me/subscriptions [get]
func (h *Handler) ListSubscriptions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	d, err := h.subs.Dashboard(ctx, userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDashboardView(d))
}

// CreateSubscription
// @Summary Add subscription
// @Description Adds a subscription and sends a new-subscription notice to the caller's webhook.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user id"
// @Param body body models.SubscriptionInput true "Subscription"
// @Success 201 {object} subscriptionView
// @Failure 400
// @Failure 401
// @Failure 404
// @Failure 409
// @Router /api/me/subscriptions [post]
func (h *Handler) CreateSubscription(c *gin.Context) {
	var in models.SubscriptionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Debug().Err(err).Msg("failed to bind subscription")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription data"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	sub, err := h.subs.Create(ctx, userID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSubscriptionView(sub))
}

// UpdateSubscription
// @Summary Edit subscription
// @Description Replaces every field of the subscription currently named :name.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user id"
// @Param name path string true "Current subscription name"
// @Param body body models.SubscriptionInput true "Subscription"
// @Success 200 {object} subscriptionView
// @Failure 400
// @Failure 401
// @Failure 404
// @Failure 409
// @Router /api/me/subscriptions/{name} [put]
func (h *Handler) UpdateSubscription(c *gin.Context) {
	var in models.SubscriptionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription data"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	sub, err := h.subs.Update(ctx, userID(c), c.Param("name"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionView(sub))
}

// DeleteSubscription
// @Summary Remove subscription
// @Tags subscriptions
// @Param X-User-ID header string true "Authenticated user id"
// @Param name path string true "Subscription name"
// @Success 204
// @Failure 401
// @Failure 404
// @Router /api/me/subscriptions/{name} [delete]
func (h *Handler) DeleteSubscription(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.subs.Delete(ctx, userID(c), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetWebhook
// @Summary Set webhook
// @Description Sets the caller's notification webhook. An empty url turns notifications off.
// @Tags users
// @Accept json
// @Param X-User-ID header string true "Authenticated user id"
// @Param body body webhookRequest true "Webhook"
// @Success 204
// @Failure 400
// @Failure 401
// @Failure 404
// @Router /api/me/webhook [put]
func (h *Handler) SetWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook data"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.subs.SetWebhook(ctx, userID(c), req.URL); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetCurrency
// @Summary Set display currency
// @Tags users
// @Accept json
// @Param X-User-ID header string true "Authenticated user id"
// @Param body body currencyRequest true "Currency"
// @Success 204
// @Failure 400
// @Failure 401
// @Failure 404
// @Router /api/me/currency [put]
func (h *Handler) SetCurrency(c *gin.Context) {
	var req currencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.subs.SetCurrency(ctx, userID(c), req.Currency); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckNotifications
// @Summary Run renewal notifications now
// @Description Runs the renewal pipeline once and reports what happened.
// @Tags notifications
// @Produce json
// @Param X-User-ID header string true "Authenticated user id"
// @Success 200 {object} notifier.RunResult
// @Failure 401
// @Failure 500
// @Router /api/notifications/check [post]
func (h *Handler) CheckNotifications(c *gin.Context) {
	res, err := h.pipeline.RunDue(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info().Str("user_id", userID(c)).Int("due", res.Due).Msg("manual renewal run")
	c.JSON(http.StatusOK, res)
}
