// Package inventory reconciles order lines against product stock. The
// ledger must run inside the settlement transaction so the stock it checks
// is the stock it decrements.
package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
	"github.com/novamart/novamart-commerce-service/internal/models"
)

// ProductView is the slice of the product repository the ledger needs:
// lock rows, adjust stock. Both must be bound to the caller's transaction.
type ProductView interface {
	LockByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) error
}

// Ledger performs all-or-nothing stock reservation for one settlement.
type Ledger struct {
	products ProductView
}

// NewLedger creates a ledger over a transaction-bound product view.
func NewLedger(products ProductView) *Ledger {
	return &Ledger{products: products}
}

// Reserve checks that every item's quantity is covered by current stock
// and then decrements each product by its total ordered quantity. The
// check and the decrement see the same locked rows, so no concurrent
// settlement can interleave between them. On insufficient stock nothing
// is decremented and the returned error names the first offending item's
// product and its available quantity.
func (l *Ledger) Reserve(ctx context.Context, items []models.OrderItem) error {
	need := make(map[string]int, len(items))
	for _, item := range items {
		need[item.ProductID] += item.Quantity
	}

	ids := make([]string, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	// Fixed global lock order: ascending product id.
	sort.Strings(ids)

	locked, err := l.products.LockByIDs(ctx, ids)
	if err != nil {
		return err
	}

	// Check every line before touching anything. Quantities are aggregated
	// per product so an order with two lines for the same product cannot
	// pass line-by-line checks and still overdraw the stock.
	for _, item := range items {
		product, ok := locked[item.ProductID]
		if !ok {
			return apperrors.NotFound("Product not found: "+item.ProductID, item.ProductID)
		}
		if product.StockQuantity < need[item.ProductID] {
			return apperrors.BusinessRule(
				fmt.Sprintf("Insufficient stock for product '%s': available only %d",
					product.ID, product.StockQuantity),
				product.ID,
			)
		}
	}

	for _, id := range ids {
		if err := l.products.AdjustStock(ctx, id, -need[id]); err != nil {
			return err
		}
	}
	return nil
}
