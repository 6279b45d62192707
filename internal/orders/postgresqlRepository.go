package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"fitness-pay-backend/internal/orders/entities"
	"fitness-pay-backend/internal/orders/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// pgUniqueViolation is the SQLSTATE for a primary key conflict.
const pgUniqueViolation = "23505"

type OrderPostgresRepository struct {
	pool *pgxpool.Pool
}

// NewOrderPostgresRepository connects to connString. password is applied when
// the URL does not carry one, so the credential can live in its own variable.
func NewOrderPostgresRepository(ctx context.Context, connString, password string) (*OrderPostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if config.ConnConfig.Password == "" {
		config.ConnConfig.Password = password
	}
	config.MaxConns = 10
	config.MaxConnIdleTime = time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	dbpool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}

	return &OrderPostgresRepository{pool: dbpool}, nil
}

func (r *OrderPostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *OrderPostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			order_no   TEXT PRIMARY KEY,
			amount     NUMERIC(12,2) NOT NULL,
			pay_type   TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			paid_at    TIMESTAMPTZ,
			trade_no   TEXT,
			raw_notify JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (r *OrderPostgresRepository) Insert(ctx context.Context, order *entities.Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders (order_no, amount, pay_type, status, created_at)
		VALUES ($1, $2::numeric, $3, $4, $5)
	`, order.OrderNo, order.Amount.StringFixed(2), string(order.PayType), string(order.Status), order.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

func (r *OrderPostgresRepository) UpdateByOrderNo(ctx context.Context, orderNo string, patch entities.OrderPatch) error {
	raw, err := json.Marshal(patch.RawNotify)
	if err != nil {
		return fmt.Errorf("encode raw_notify: %w", err)
	}

	var tradeNo *string
	if patch.TradeNo != "" {
		tradeNo = &patch.TradeNo
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $2,
		    paid_at = COALESCE(paid_at, $3),
		    trade_no = $4,
		    raw_notify = $5
		WHERE order_no = $1
	`, orderNo, string(patch.Status), patch.PaidAt, tradeNo, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *OrderPostgresRepository) FindByOrderNo(ctx context.Context, orderNo string) (*entities.Order, error) {
	var (
		o         entities.Order
		amount    string
		payType   string
		status    string
		tradeNo   *string
		rawNotify []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT order_no, amount::text, pay_type, status, paid_at, trade_no, raw_notify, created_at
		FROM orders
		WHERE order_no = $1
	`, orderNo).Scan(&o.OrderNo, &amount, &payType, &status, &o.PaidAt, &tradeNo, &rawNotify, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
	if tradeNo != nil {
		o.TradeNo = *tradeNo
	}
	if len(rawNotify) > 0 {
		if err := json.Unmarshal(rawNotify, &o.RawNotify); err != nil {
			return nil, fmt.Errorf("decode raw_notify: %w", err)
		}
	}
	return &o, nil
}
