package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
	"github.com/novamart/novamart-commerce-service/internal/models"
)

// PostgresStore implements Store over database/sql with the lib/pq driver.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.Named("postgres-store"),
	}
}

func (s *PostgresStore) Orders() OrderRepository {
	return &postgresOrderRepo{q: s.db, logger: s.logger}
}

func (s *PostgresStore) Products() ProductRepository {
	return &postgresProductRepo{q: s.db, logger: s.logger}
}

// InTx runs fn inside a single database transaction. Read committed is
// sufficient: settlement serializes on explicit row locks, not on
// snapshot isolation.
func (s *PostgresStore) InTx(ctx context.Context, fn func(r Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	repos := &txRepositories{
		orders:   &postgresOrderRepo{q: tx, logger: s.logger},
		products: &postgresProductRepo{q: tx, logger: s.logger},
	}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}

	return tx.Commit()
}

// IsRetryable reports whether err is a transient transaction failure the
// settlement loop may retry: Postgres serialization failure (40001) or
// deadlock detected (40P01).
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

type txRepositories struct {
	orders   OrderRepository
	products ProductRepository
}

func (r *txRepositories) Orders() OrderRepository     { return r.orders }
func (r *txRepositories) Products() ProductRepository { return r.products }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresOrderRepo struct {
	q      queryer
	logger *zap.Logger
}

const orderColumns = `id, user_id, status, items, total_amount, total_currency, created_at, updated_at`

func (r *postgresOrderRepo) Create(ctx context.Context, order *models.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (id, user_id, status, items, total_amount, total_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.q.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		itemsJSON,
		order.Total.Amount,
		order.Total.Currency,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert order",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return err
	}

	r.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int64("total", order.Total.Amount))
	return nil
}

func (r *postgresOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id), id)
}

func (r *postgresOrderRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id), id)
}

func (r *postgresOrderRepo) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *postgresOrderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("Order not found: "+id, id)
	}

	r.logger.Info("Order status updated",
		zap.String("order_id", id),
		zap.String("status", string(status)))
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresOrderRepo) scanOne(row *sql.Row, id string) (*models.Order, error) {
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("Order not found: "+id, id)
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}
	return order, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var itemsJSON []byte

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&itemsJSON,
		&order.Total.Amount,
		&order.Total.Currency,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	return &order, nil
}

type postgresProductRepo struct {
	q      queryer
	logger *zap.Logger
}

const productColumns = `id, name, description, category, price_amount, price_currency, stock_quantity, status, created_at, updated_at`

func (r *postgresProductRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, description, category, price_amount, price_currency, stock_quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Category,
		product.Price.Amount,
		product.Price.Currency,
		product.StockQuantity,
		product.Status,
		product.CreatedAt,
		product.UpdatedAt,
	)
	return err
}

func (r *postgresProductRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("Product not found: "+id, id)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *postgresProductRepo) LockByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	// ORDER BY id fixes the lock acquisition order across concurrent
	// settlements that overlap on products.
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]*models.Product, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	return products, rows.Err()
}

func (r *postgresProductRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	// The stock_quantity guard backs up the ledger's pre-check at the
	// database level; stock can never go negative even if a caller skips
	// the check.
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = $3
		WHERE id = $1 AND stock_quantity + $2 >= 0
	`

	result, err := r.q.ExecContext(ctx, query, id, delta, time.Now())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperrors.BusinessRule("Stock adjustment rejected for product: "+id, id)
	}

	r.logger.Debug("Stock adjusted",
		zap.String("product_id", id),
		zap.Int("delta", delta))
	return nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var product models.Product
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.Price.Amount,
		&product.Price.Currency,
		&product.StockQuantity,
		&product.Status,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &product, nil
}
