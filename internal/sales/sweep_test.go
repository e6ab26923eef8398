package sales

import (
	"context"
	"testing"
	"time"

	"go-biz-server/internal/models"

	"go.uber.org/zap"
)

func TestSweepFailsStalePendingPayments(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)
	ctx := context.Background()

	stale, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa)
	fresh, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa)
	for _, id := range []uint{stale.ID, fresh.ID} {
		if _, err := svc.RequestPayment(ctx, id); err != nil {
			t.Fatalf("request payment %d: %v", id, err)
		}
	}

	// Age the first push past the timeout.
	old := time.Now().Add(-10 * time.Minute)
	if err := db.Model(&models.Transaction{}).Where("id = ?", stale.ID).Update("pending_at", old).Error; err != nil {
		t.Fatalf("age transaction: %v", err)
	}

	sweeper := NewSweeper(db, zap.NewNop(), 5*time.Minute, time.Minute)
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d transactions, want 1", n)
	}

	got, _ := svc.GetTransaction(ctx, stale.ID)
	if got.Status != models.StatusFailed {
		t.Fatalf("stale status = %s, want Failed", got.Status)
	}
	kept, _ := svc.GetTransaction(ctx, fresh.ID)
	if kept.Status != models.StatusPendingPayment {
		t.Fatalf("fresh status = %s, want PendingPayment", kept.Status)
	}
}

func TestSweepMeasuresFromPushNotSale(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)
	ctx := context.Background()

	// The sale sat Created for a while before the cashier got the push
	// through. The customer's approval window starts at the push, so the
	// sweep must leave it alone even though the sale itself is old.
	tx, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa)
	old := time.Now().Add(-10 * time.Minute)
	if err := db.Model(&models.Transaction{}).Where("id = ?", tx.ID).Update("date_recorded", old).Error; err != nil {
		t.Fatalf("age sale: %v", err)
	}
	if _, err := svc.RequestPayment(ctx, tx.ID); err != nil {
		t.Fatalf("request payment: %v", err)
	}

	sweeper := NewSweeper(db, zap.NewNop(), 5*time.Minute, time.Minute)
	if n, err := sweeper.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("sweep expired %d rows (err %v), want 0", n, err)
	}

	// The customer approves within the window; the callback must land.
	if err := svc.HandleCallback(ctx, tx.ID, successCallback("ABC123", 50)); err != nil {
		t.Fatalf("callback: %v", err)
	}
	got, _ := svc.GetTransaction(ctx, tx.ID)
	if got.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want Completed", got.Status)
	}
	if got.MpesaReceipt == nil || *got.MpesaReceipt != "ABC123" {
		t.Fatalf("receipt not stored: %+v", got.MpesaReceipt)
	}
}

func TestSweepIgnoresTerminalTransactions(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)
	ctx := context.Background()

	tx, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa)
	if _, err := svc.RequestPayment(ctx, tx.ID); err != nil {
		t.Fatalf("request payment: %v", err)
	}
	if err := svc.HandleCallback(ctx, tx.ID, successCallback("ABC123", 50)); err != nil {
		t.Fatalf("callback: %v", err)
	}

	old := time.Now().Add(-time.Hour)
	db.Model(&models.Transaction{}).Where("id = ?", tx.ID).Update("pending_at", old)

	sweeper := NewSweeper(db, zap.NewNop(), 5*time.Minute, time.Minute)
	if n, err := sweeper.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("sweep touched %d rows (err %v), want 0", n, err)
	}

	got, _ := svc.GetTransaction(ctx, tx.ID)
	if got.Status != models.StatusCompleted {
		t.Fatalf("completed transaction changed to %s", got.Status)
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	_, db := newTestService(t, nil)

	sweeper := NewSweeper(db, zap.NewNop(), time.Minute, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
