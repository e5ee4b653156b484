// Package repository provides persistence for orders and products. The
// Postgres implementation is the production store; the in-memory
// implementation backs tests and single-node development with the same
// transactional contract.
package repository

import (
	"context"

	"github.com/novamart/novamart-commerce-service/internal/models"
)

// OrderRepository persists orders.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetByIDForUpdate fetches an order and, inside a transaction, holds an
	// exclusive lock on its row until commit. Settlement uses this so the
	// status check and the transition are one atomic unit.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	// ListByUser returns the user's orders in creation order.
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// LockByIDs fetches the given products and, inside a transaction, holds
	// exclusive locks on their rows until commit. Rows are always locked in
	// ascending id order so concurrent settlements cannot deadlock.
	LockByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	// AdjustStock changes a product's stock by delta. It refuses to push
	// stock below zero.
	AdjustStock(ctx context.Context, id string, delta int) error
}

// Repositories bundles the repository set bound to one storage scope,
// either auto-commit or a single transaction.
type Repositories interface {
	Orders() OrderRepository
	Products() ProductRepository
}

// Store is the storage entry point: auto-commit repositories plus the
// ability to run a function inside one transaction.
type Store interface {
	Repositories
	// InTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. Row locks taken through the
	// transaction-bound repositories are held until then.
	InTx(ctx context.Context, fn func(r Repositories) error) error
}
