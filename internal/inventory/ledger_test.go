package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
	"github.com/novamart/novamart-commerce-service/internal/models"
	"github.com/novamart/novamart-commerce-service/internal/repository"
)

func seedProduct(t *testing.T, store *repository.MemoryStore, id string, stock int) {
	t.Helper()
	err := store.Products().Create(context.Background(), &models.Product{
		ID:            id,
		Name:          "Product " + id,
		Price:         models.NewMoney(10, "USD"),
		StockQuantity: stock,
		Status:        models.ProductStatusActive,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	})
	require.NoError(t, err)
}

func stockOf(t *testing.T, store *repository.MemoryStore, id string) int {
	t.Helper()
	product, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return product.StockQuantity
}

func TestLedger_Reserve_DecrementsAllLines(t *testing.T) {
	store := repository.NewMemoryStore()
	seedProduct(t, store, "p1", 5)
	seedProduct(t, store, "p2", 3)

	err := store.InTx(context.Background(), func(r repository.Repositories) error {
		return NewLedger(r.Products()).Reserve(context.Background(), []models.OrderItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		})
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stockOf(t, store, "p1"))
	assert.Equal(t, 0, stockOf(t, store, "p2"))
}

func TestLedger_Reserve_InsufficientStockIsAllOrNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	seedProduct(t, store, "p1", 5)
	seedProduct(t, store, "p2", 1)

	err := store.InTx(context.Background(), func(r repository.Repositories) error {
		return NewLedger(r.Products()).Reserve(context.Background(), []models.OrderItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 2},
		})
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindBusinessRule))
	assert.EqualError(t, err, "Insufficient stock for product 'p2': available only 1")

	// No line was decremented, including the one that had stock.
	assert.Equal(t, 5, stockOf(t, store, "p1"))
	assert.Equal(t, 1, stockOf(t, store, "p2"))
}

func TestLedger_Reserve_AggregatesDuplicateProductLines(t *testing.T) {
	store := repository.NewMemoryStore()
	seedProduct(t, store, "p1", 3)

	// Two lines for the same product must be checked against their sum,
	// not individually.
	err := store.InTx(context.Background(), func(r repository.Repositories) error {
		return NewLedger(r.Products()).Reserve(context.Background(), []models.OrderItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p1", Quantity: 2},
		})
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindBusinessRule))
	assert.Equal(t, 3, stockOf(t, store, "p1"))
}

func TestLedger_Reserve_UnknownProduct(t *testing.T) {
	store := repository.NewMemoryStore()

	err := store.InTx(context.Background(), func(r repository.Repositories) error {
		return NewLedger(r.Products()).Reserve(context.Background(), []models.OrderItem{
			{ProductID: "ghost", Quantity: 1},
		})
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
