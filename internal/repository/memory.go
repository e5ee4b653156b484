package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
	"github.com/novamart/novamart-commerce-service/internal/models"
)

// MemoryStore is an in-memory Store used by tests and single-node
// development. A store-wide mutex serializes transactions, which is
// coarser than row locking but upholds the same atomicity contract:
// nothing observes stock between a settlement's check and its decrement.
type MemoryStore struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	products map[string]*models.Product
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[string]*models.Order),
		products: make(map[string]*models.Product),
	}
}

func (s *MemoryStore) Orders() OrderRepository {
	return &memoryOrderRepo{store: s}
}

func (s *MemoryStore) Products() ProductRepository {
	return &memoryProductRepo{store: s}
}

// InTx runs fn under the store mutex. On error the pre-transaction state
// is restored, so partial effects never survive a failed transaction.
func (s *MemoryStore) InTx(ctx context.Context, fn func(r Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordersSnapshot := cloneOrders(s.orders)
	productsSnapshot := cloneProducts(s.products)

	repos := &txRepositories{
		orders:   &memoryOrderRepo{store: s, inTx: true},
		products: &memoryProductRepo{store: s, inTx: true},
	}

	if err := fn(repos); err != nil {
		s.orders = ordersSnapshot
		s.products = productsSnapshot
		return err
	}
	return nil
}

type memoryOrderRepo struct {
	store *MemoryStore
	inTx  bool
}

func (r *memoryOrderRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *memoryOrderRepo) Create(ctx context.Context, order *models.Order) error {
	defer r.lock()()
	r.store.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *memoryOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	defer r.lock()()
	order, ok := r.store.orders[id]
	if !ok {
		return nil, apperrors.NotFound("Order not found: "+id, id)
	}
	return cloneOrder(order), nil
}

func (r *memoryOrderRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	// The store mutex already serializes the whole transaction.
	return r.GetByID(ctx, id)
}

func (r *memoryOrderRepo) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	defer r.lock()()
	orders := make([]*models.Order, 0)
	for _, order := range r.store.orders {
		if order.UserID == userID {
			orders = append(orders, cloneOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *memoryOrderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	defer r.lock()()
	order, ok := r.store.orders[id]
	if !ok {
		return apperrors.NotFound("Order not found: "+id, id)
	}
	order.Status = status
	return nil
}

type memoryProductRepo struct {
	store *MemoryStore
	inTx  bool
}

func (r *memoryProductRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *memoryProductRepo) Create(ctx context.Context, product *models.Product) error {
	defer r.lock()()
	r.store.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *memoryProductRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	defer r.lock()()
	product, ok := r.store.products[id]
	if !ok {
		return nil, apperrors.NotFound("Product not found: "+id, id)
	}
	return cloneProduct(product), nil
}

func (r *memoryProductRepo) LockByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	defer r.lock()()
	products := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if product, ok := r.store.products[id]; ok {
			products[id] = cloneProduct(product)
		}
	}
	return products, nil
}

func (r *memoryProductRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	defer r.lock()()
	product, ok := r.store.products[id]
	if !ok {
		return apperrors.NotFound("Product not found: "+id, id)
	}
	if product.StockQuantity+delta < 0 {
		return apperrors.BusinessRule("Stock adjustment rejected for product: "+id, id)
	}
	product.StockQuantity += delta
	return nil
}

func cloneOrder(o *models.Order) *models.Order {
	clone := *o
	clone.Items = make([]models.OrderItem, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}

func cloneProduct(p *models.Product) *models.Product {
	clone := *p
	return &clone
}

func cloneOrders(orders map[string]*models.Order) map[string]*models.Order {
	out := make(map[string]*models.Order, len(orders))
	for id, o := range orders {
		out[id] = cloneOrder(o)
	}
	return out
}

func cloneProducts(products map[string]*models.Product) map[string]*models.Product {
	out := make(map[string]*models.Product, len(products))
	for id, p := range products {
		out[id] = cloneProduct(p)
	}
	return out
}
