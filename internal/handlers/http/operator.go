package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OperatorLogin
// @Summary Operator login
// @Description Exchanges the operator secret for a capability token valid for one hour.
// @Tags operator
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user id"
// @Param body body loginRequest true "Secret"
// @Success 200 {object} operator.Token
// @Failure 400
// @Failure 401
// @Failure 403
// @Failure 429
// @Router /api/operator/login [post]
func (h *Handler) OperatorLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	tok, err := h.operator.Login(ctx, userID(c), req.Secret)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// OperatorLogout
// @Summary Operator logout
// @Tags operator
// @Param X-User-ID header string true "Authenticated user id"
// @Param X-Operator-Token header string true "Capability token"
// @Success 204
// @Failure 401
// @Failure 403
// @Router /api/operator/logout [post]
func (h *Handler) OperatorLogout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.operator.Logout(ctx, userID(c), c.GetHeader(HeaderOperatorToken)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Broadcast
// @Summary Broadcast urgent message
// @Description Sends an urgent message to every registered webhook, one at a time.
// @Tags operator
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user id"
// @Param X-Operator-Token header string true "Capability token"
// @Param body body broadcastRequest true "Message"
// @Success 200 {object} broadcast.Summary
// @Failure 400
// @Failure 401
// @Failure 403
// @Router /api/operator/broadcast [post]
func (h *Handler) Broadcast(c *gin.Context) {
	authCtx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.operator.Authorize(authCtx, userID(c), c.GetHeader(HeaderOperatorToken)); err != nil {
		h.respondError(c, err)
		return
	}

	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid broadcast data"})
		return
	}

	// A client that hangs up must not cancel recipients that are still queued;
	// the coordinator bounds the run by its recipient count.
	summary, err := h.broadcast.Broadcast(context.WithoutCancel(c.Request.Context()), req.Title, req.Message)
	if err != nil && summary.Sent+summary.Failed == 0 {
		h.respondError(c, err)
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Msg("broadcast ended early")
	}
	c.JSON(http.StatusOK, summary)
}
