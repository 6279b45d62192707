package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"fitness-pay-backend/internal/orders/entities"
	"fitness-pay-backend/internal/orders/repository"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

type OrderSQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewOrderSQLiteRepository opens path, which is a plain file path or a
// "file:" URI passed through to the driver untouched.
func NewOrderSQLiteRepository(ctx context.Context, path string) (*OrderSQLiteRepository, error) {
	if dir := filepath.Dir(path); !strings.HasPrefix(path, "file:") && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	repo := &OrderSQLiteRepository{db: db}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *OrderSQLiteRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			order_no   TEXT PRIMARY KEY,
			amount     TEXT NOT NULL,
			pay_type   TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			paid_at    TEXT,
			trade_no   TEXT,
			raw_notify TEXT,
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func (r *OrderSQLiteRepository) Close() {
	r.db.Close()
}

func (r *OrderSQLiteRepository) Insert(ctx context.Context, o *entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (order_no, amount, pay_type, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, o.OrderNo, o.Amount.StringFixed(2), string(o.PayType), string(o.Status), formatTime(o.CreatedAt))

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *OrderSQLiteRepository) UpdateByOrderNo(ctx context.Context, orderNo string, patch entities.OrderPatch) error {
	raw, err := json.Marshal(patch.RawNotify)
	if err != nil {
		return fmt.Errorf("encode raw_notify: %w", err)
	}

	var tradeNo sql.NullString
	if patch.TradeNo != "" {
		tradeNo = sql.NullString{String: patch.TradeNo, Valid: true}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, paid_at = COALESCE(paid_at, ?), trade_no = ?, raw_notify = ?
		WHERE order_no = ?
	`, string(patch.Status), formatTime(patch.PaidAt), tradeNo, string(raw), orderNo)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *OrderSQLiteRepository) FindByOrderNo(ctx context.Context, orderNo string) (*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRowContext(ctx, `
		SELECT order_no, amount, pay_type, status, paid_at, trade_no, raw_notify, created_at
		FROM orders WHERE order_no = ?
	`, orderNo)

	var (
		o                          entities.Order
		amount, payType, status    string
		createdAt                  string
		paidAt, tradeNo, rawNotify sql.NullString
	)
	err := row.Scan(&o.OrderNo, &amount, &payType, &status, &paidAt, &tradeNo, &rawNotify, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("decode amount %q: %w", amount, err)
	}
	o.PayType = entities.PayType(payType)
	o.Status = entities.OrderStatus(status)
	o.TradeNo = tradeNo.String
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if paidAt.Valid {
		t, err := parseTime(paidAt.String)
		if err != nil {
			return nil, fmt.Errorf("decode paid_at: %w", err)
		}
		o.PaidAt = &t
	}
	if rawNotify.Valid && rawNotify.String != "" {
		if err := json.Unmarshal([]byte(rawNotify.String), &o.RawNotify); err != nil {
			return nil, fmt.Errorf("decode raw_notify: %w", err)
		}
	}
	return &o, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}
