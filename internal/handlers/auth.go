package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
	"github.com/novamart/novamart-commerce-service/internal/middleware"
)

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshSession handles POST /api/v1/auth/refresh. The presented token
// is validated, every token for its owner is revoked and exactly one new
// token is issued. Access-token signing happens upstream; this endpoint
// only rotates the refresh token.
func (h *Handlers) RefreshSession(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	ctx := c.Request.Context()

	userID, err := h.tokens.Validate(ctx, req.RefreshToken)
	if err != nil {
		handleError(c, err)
		return
	}

	newToken, err := h.tokens.Rotate(ctx, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	h.metrics.TokenRotations.Inc()

	c.JSON(http.StatusOK, gin.H{
		"refresh_token":   newToken,
		"user_id":         userID,
		"expires_in_days": h.config.Auth.RefreshTokenTTLDays,
	})
}

// SignOut handles POST /api/v1/auth/signout. The token is revoked only
// when it belongs to the authenticated caller.
func (h *Handlers) SignOut(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	valid, err := h.tokens.IsValidForUser(ctx, req.RefreshToken, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	if !valid {
		handleError(c, apperrors.Security("Refresh token does not belong to the authenticated user"))
		return
	}

	if err := h.tokens.Revoke(ctx, req.RefreshToken); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
