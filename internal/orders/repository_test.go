package orders

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fitness-pay-backend/internal/orders/entities"
	"fitness-pay-backend/internal/orders/repository"
)

// testRepositoryContract exercises the behavior every order store shares.
func testRepositoryContract(t *testing.T, repo repository.Order, prefix string) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orderNo := prefix + "1"

	order := &entities.Order{
		OrderNo:   orderNo,
		Amount:    decimal.RequireFromString("9.9"),
		PayType:   entities.PayTypeAlipay,
		Status:    entities.StatusPending,
		CreatedAt: created,
	}

	t.Run("Given a new order When inserted Then it can be found pending", func(t *testing.T) {
		if err := repo.Insert(ctx, order); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		got, err := repo.FindByOrderNo(ctx, orderNo)
		if err != nil {
			t.Fatalf("FindByOrderNo failed: %v", err)
		}
		if got.Status != entities.StatusPending || got.PayType != entities.PayTypeAlipay {
			t.Errorf("Unexpected order %+v", got)
		}
		if got.Amount.StringFixed(2) != "9.90" {
			t.Errorf("Expected amount 9.90, got %s", got.Amount.StringFixed(2))
		}
		if got.PaidAt != nil || got.TradeNo != "" || got.RawNotify != nil {
			t.Errorf("Expected no payment data, got %+v", got)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
		}
	})

	t.Run("Given an existing order_no When inserted again Then duplicate", func(t *testing.T) {
		if err := repo.Insert(ctx, order); !errors.Is(err, repository.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	paidAt := created.Add(time.Minute)
	t.Run("Given a paid patch When applied Then the order is paid", func(t *testing.T) {
		err := repo.UpdateByOrderNo(ctx, orderNo, entities.OrderPatch{
			Status:    entities.StatusPaid,
			PaidAt:    paidAt,
			TradeNo:   "T1",
			RawNotify: map[string]string{"out_trade_no": orderNo, "trade_status": "TRADE_SUCCESS"},
		})
		if err != nil {
			t.Fatalf("UpdateByOrderNo failed: %v", err)
		}
		got, err := repo.FindByOrderNo(ctx, orderNo)
		if err != nil {
			t.Fatalf("FindByOrderNo failed: %v", err)
		}
		if got.Status != entities.StatusPaid || got.TradeNo != "T1" {
			t.Errorf("Unexpected order %+v", got)
		}
		if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
			t.Errorf("Expected paid_at %v, got %v", paidAt, got.PaidAt)
		}
		if got.RawNotify["trade_status"] != "TRADE_SUCCESS" {
			t.Errorf("Expected raw notify stored, got %v", got.RawNotify)
		}
	})

	t.Run("Given a paid order When patched again Then paid_at is kept", func(t *testing.T) {
		err := repo.UpdateByOrderNo(ctx, orderNo, entities.OrderPatch{
			Status:    entities.StatusPaid,
			PaidAt:    paidAt.Add(time.Hour),
			TradeNo:   "T2",
			RawNotify: map[string]string{"out_trade_no": orderNo, "trade_no": "T2"},
		})
		if err != nil {
			t.Fatalf("UpdateByOrderNo failed: %v", err)
		}
		got, _ := repo.FindByOrderNo(ctx, orderNo)
		if !got.PaidAt.Equal(paidAt) {
			t.Errorf("Expected paid_at to stay %v, got %v", paidAt, got.PaidAt)
		}
		if got.TradeNo != "T2" || got.RawNotify["trade_no"] != "T2" {
			t.Errorf("Expected the latest notification to be recorded, got %+v", got)
		}
	})

	t.Run("Given an unknown order When patched Then not found", func(t *testing.T) {
		err := repo.UpdateByOrderNo(ctx, prefix+"missing", entities.OrderPatch{Status: entities.StatusPaid, PaidAt: paidAt})
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Given an unknown order When found Then not found", func(t *testing.T) {
		if _, err := repo.FindByOrderNo(ctx, prefix+"missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestInMemoryOrderDB(t *testing.T) {
	repo := NewInMemoryOrderDB()
	defer repo.Close()
	testRepositoryContract(t, repo, "FPMEM")
}

func TestInMemoryOrderDBReturnsCopies(t *testing.T) {
	repo := NewInMemoryOrderDB()
	ctx := context.Background()
	_ = repo.Insert(ctx, &entities.Order{OrderNo: "FP1", Status: entities.StatusPending})

	got, _ := repo.FindByOrderNo(ctx, "FP1")
	got.Status = entities.StatusPaid

	again, _ := repo.FindByOrderNo(ctx, "FP1")
	if again.Status != entities.StatusPending {
		t.Error("Expected stored order to be unaffected by caller mutation")
	}
}

func TestOrderSQLiteRepository(t *testing.T) {
	repo, err := NewOrderSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "data", "orders.db"))
	if err != nil {
		t.Fatalf("NewOrderSQLiteRepository failed: %v", err)
	}
	defer repo.Close()
	testRepositoryContract(t, repo, "FPSQL")
}

func TestOrderSQLiteRepositoryRejectsCorruptTimestamps(t *testing.T) {
	ctx := context.Background()
	repo, err := NewOrderSQLiteRepository(ctx, filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("NewOrderSQLiteRepository failed: %v", err)
	}
	defer repo.Close()

	tests := []struct {
		name      string
		orderNo   string
		createdAt string
		paidAt    any
	}{
		{
			name:      "Given an unparsable created_at When found Then an error is returned",
			orderNo:   "FPBADCREATED",
			createdAt: "not-a-time",
			paidAt:    nil,
		},
		{
			name:      "Given an unparsable paid_at When found Then an error is returned",
			orderNo:   "FPBADPAID",
			createdAt: "2024-05-01T12:00:00.000Z",
			paidAt:    "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.db.ExecContext(ctx,
				`INSERT INTO orders (order_no, amount, pay_type, status, paid_at, created_at) VALUES (?, '9.90', 'wxpay', 'pending', ?, ?)`,
				tt.orderNo, tt.paidAt, tt.createdAt)
			if err != nil {
				t.Fatalf("seed %s: %v", tt.orderNo, err)
			}

			o, err := repo.FindByOrderNo(ctx, tt.orderNo)
			if err == nil {
				t.Fatalf("Expected a decode error, got %+v", o)
			}
			if errors.Is(err, repository.ErrNotFound) {
				t.Errorf("Expected a decode error, got %v", err)
			}
		})
	}
}

func TestOrderPostgresRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := NewOrderPostgresRepository(ctx, url, "")
	if err != nil {
		t.Fatalf("NewOrderPostgresRepository failed: %v", err)
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	testRepositoryContract(t, repo, "FPPG"+time.Now().Format("150405.000000"))
}

func TestOrderRedisRepository(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	repo, err := NewOrderRedisRepository(ctx, "redis://"+addr, "")
	if err != nil {
		t.Fatalf("NewOrderRedisRepository failed: %v", err)
	}
	defer repo.Close()
	testRepositoryContract(t, repo, "FPRDS"+time.Now().Format("150405.000000"))
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "Given memory:// When opened Then in-memory store", url: "memory://"},
		{name: "Given sqlite:// When opened Then sqlite store", url: "sqlite://" + filepath.Join(dir, "a.db")},
		{name: "Given file: When opened Then sqlite store", url: "file:" + filepath.Join(dir, "b.db")},
		{name: "Given an unknown scheme When opened Then error", url: "mysql://localhost/db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := OpenRepository(ctx, tt.url, "")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenRepository failed: %v", err)
			}
			defer repo.Close()
			if err := repo.Migrate(ctx); err != nil {
				t.Errorf("Migrate failed: %v", err)
			}
		})
	}
}
