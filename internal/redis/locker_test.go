package redis

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(context.Background(), addr)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOrderLockerSerializesSameOrder(t *testing.T) {
	locker := NewOrderLocker(testClient(t))
	orderNo := "FP" + time.Now().Format("20060102150405.000000")

	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), orderNo)
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(20 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	if overlap.Load() {
		t.Error("Expected at most one holder of the order lock at a time")
	}
}

func TestOrderLockerIndependentOrders(t *testing.T) {
	locker := NewOrderLocker(testClient(t))
	suffix := time.Now().Format("150405.000000")

	unlockA, err := locker.Lock(context.Background(), "FPA"+suffix)
	if err != nil {
		t.Fatalf("Lock A failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "FPB"+suffix)
	if err != nil {
		t.Fatalf("Expected a different order to lock independently: %v", err)
	}
	unlockB()
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient(context.Background(), "redis://:bad url"); err == nil {
		t.Error("Expected an error for an unparsable URL")
	}
}
