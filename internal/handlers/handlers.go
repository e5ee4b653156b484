// Package handlers exposes the HTTP surface. Handlers only bind requests,
// resolve identity from middleware and translate typed errors to status
// codes; every invariant lives in the services underneath.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
	"github.com/novamart/novamart-commerce-service/internal/auth"
	"github.com/novamart/novamart-commerce-service/internal/config"
	"github.com/novamart/novamart-commerce-service/internal/metrics"
	"github.com/novamart/novamart-commerce-service/internal/repository"
	"github.com/novamart/novamart-commerce-service/internal/service"
)

// Handlers holds all HTTP handlers for the commerce service.
type Handlers struct {
	orders   *service.OrderService
	tokens   *auth.SessionTokenStore
	products repository.ProductRepository
	metrics  *metrics.Metrics
	config   *config.Config
	logger   *zap.Logger
}

// New creates a new handlers instance.
func New(
	orders *service.OrderService,
	tokens *auth.SessionTokenStore,
	products repository.ProductRepository,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		orders:   orders,
		tokens:   tokens,
		products: products,
		metrics:  m,
		config:   cfg,
		logger:   logger.Named("handlers"),
	}
}

func handleError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindBusinessRule:
		status = http.StatusUnprocessableEntity
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindSecurity:
		status = http.StatusUnauthorized
	}

	body := gin.H{"error": appErr.Message}
	if appErr.EntityID != "" {
		body["entity_id"] = appErr.EntityID
	}
	c.JSON(status, body)
}
