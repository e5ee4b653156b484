package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
	"github.com/novamart/novamart-commerce-service/internal/config"
	"github.com/novamart/novamart-commerce-service/internal/events"
	"github.com/novamart/novamart-commerce-service/internal/inventory"
	"github.com/novamart/novamart-commerce-service/internal/metrics"
	"github.com/novamart/novamart-commerce-service/internal/models"
	"github.com/novamart/novamart-commerce-service/internal/repository"
)

// OrderLineInput is one requested line of a new order.
type OrderLineInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderService owns the order lifecycle: creation with price snapshots,
// one-shot settlement against inventory, and per-user order reads.
type OrderService struct {
	store   repository.Store
	cache   repository.OrderCache
	events  events.Publisher
	metrics *metrics.Metrics
	config  *config.Config
	logger  *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	store repository.Store,
	cache repository.OrderCache,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		store:   store,
		cache:   cache,
		events:  publisher,
		metrics: m,
		config:  cfg,
		logger:  logger.Named("order-service"),
	}
}

// CreateOrder creates a pending order for the user. Unit prices and
// product names are snapshotted from the catalog at this instant; later
// price changes never affect the order. Stock is not touched here;
// creation reserves commercial terms, not inventory.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, lines []OrderLineInput) (*models.Order, error) {
	if userID == "" {
		return nil, apperrors.Validation("User id is required", "")
	}
	if len(lines) == 0 {
		return nil, apperrors.Validation("Order must contain at least one item", "")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, apperrors.Validation("Quantity must be positive for product: "+line.ProductID, line.ProductID)
		}
	}

	s.logger.Info("Creating order",
		zap.String("user_id", userID),
		zap.Int("line_count", len(lines)))

	var order *models.Order
	err := s.store.InTx(ctx, func(r repository.Repositories) error {
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			product, err := r.Products().GetByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.IsActive() {
				return apperrors.BusinessRule("Product is not active: "+product.ID, product.ID)
			}
			items = append(items, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				Total:       product.Price.Mul(line.Quantity),
			})
		}

		now := time.Now()
		order = &models.Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			Status:    models.OrderStatusPending,
			Items:     items,
			CreatedAt: now,
			UpdatedAt: now,
		}
		order.CalculateTotal()

		return r.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	s.invalidateCache(ctx, userID)

	if s.config.Features.EnableOrderEvents {
		if err := s.events.OrderCreated(ctx, order); err != nil {
			s.logger.Error("Failed to publish order created event",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("total", order.Total.Amount))
	return order, nil
}

// SettleOrder transitions a pending order to paid, decrementing stock for
// every line, or to canceled when any line lacks stock. The status check,
// the stock check and the decrement run inside one transaction over
// row-locked products, so concurrent settlements cannot interleave
// between check and decrement. Transient transaction conflicts are
// retried a bounded number of times; exhausting the bound surfaces as a
// conflict.
func (s *OrderService) SettleOrder(ctx context.Context, orderID string) (*models.Order, error) {
	for attempt := 0; attempt <= s.config.Settlement.MaxRetries; attempt++ {
		order, err := s.settleOnce(ctx, orderID)
		if err != nil && repository.IsRetryable(err) {
			s.metrics.SettlementRetries.Inc()
			s.logger.Warn("Settlement transaction conflict, retrying",
				zap.String("order_id", orderID),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil && apperrors.Is(err, apperrors.KindConflict) {
			s.metrics.Settlements.WithLabelValues("conflict").Inc()
		}
		return order, err
	}

	s.metrics.Settlements.WithLabelValues("conflict").Inc()
	return nil, apperrors.Conflict("Settlement aborted after repeated transaction conflicts: "+orderID, orderID)
}

func (s *OrderService) settleOnce(ctx context.Context, orderID string) (*models.Order, error) {
	var order *models.Order
	var insufficient *apperrors.Error

	err := s.store.InTx(ctx, func(r repository.Repositories) error {
		o, err := r.Orders().GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		// One-time terminal operation: a second settlement must observe
		// the terminal status and never re-run stock side effects.
		if o.IsTerminal() {
			return apperrors.Conflict("Order already processed: "+orderID, orderID)
		}

		ledger := inventory.NewLedger(r.Products())
		if err := ledger.Reserve(ctx, o.Items); err != nil {
			if apperrors.Is(err, apperrors.KindBusinessRule) {
				// Insufficient stock: stock stays untouched, but the
				// canceled transition itself must commit.
				if err := r.Orders().UpdateStatus(ctx, orderID, models.OrderStatusCanceled); err != nil {
					return err
				}
				o.Status = models.OrderStatusCanceled
				errors.As(err, &insufficient)
				order = o
				return nil
			}
			return err
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, models.OrderStatusPaid); err != nil {
			return err
		}
		o.Status = models.OrderStatusPaid
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, order.UserID)

	if insufficient != nil {
		s.metrics.Settlements.WithLabelValues("canceled").Inc()
		if s.config.Features.EnableOrderEvents {
			if err := s.events.OrderCanceled(ctx, order, insufficient.Message); err != nil {
				s.logger.Error("Failed to publish order canceled event",
					zap.String("order_id", order.ID),
					zap.Error(err))
			}
		}
		s.logger.Info("Order canceled at settlement",
			zap.String("order_id", order.ID),
			zap.String("product_id", insufficient.EntityID))
		return nil, insufficient
	}

	s.metrics.Settlements.WithLabelValues("paid").Inc()
	if s.config.Features.EnableOrderEvents {
		if err := s.events.OrderPaid(ctx, order); err != nil {
			s.logger.Error("Failed to publish order paid event",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Order settled",
		zap.String("order_id", order.ID),
		zap.Int64("total", order.Total.Amount))
	return order, nil
}

// GetUserOrders returns the user's orders in creation order, serving the
// cached list when it is fresh.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	if s.config.Features.EnableOrderCaching {
		if orders, err := s.cache.GetByUserID(ctx, userID); err == nil && orders != nil {
			return orders, nil
		}
	}

	orders, err := s.store.Orders().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.config.Features.EnableOrderCaching {
		if err := s.cache.SetByUserID(ctx, userID, orders); err != nil {
			s.logger.Error("Failed to cache user orders",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return orders, nil
}

// GetOrderForUser fetches a single order owned by the user. Orders owned
// by someone else are reported as not found rather than revealing their
// existence.
func (s *OrderService) GetOrderForUser(ctx context.Context, orderID, userID string) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("Order not found: "+orderID, orderID)
	}
	return order, nil
}

func (s *OrderService) invalidateCache(ctx context.Context, userID string) {
	if !s.config.Features.EnableOrderCaching {
		return
	}
	if err := s.cache.InvalidateByUserID(ctx, userID); err != nil {
		s.logger.Error("Failed to invalidate order cache",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
