package sales

import (
	"context"
	"errors"
	"testing"

	"go-biz-server/internal/database"
	"go-biz-server/internal/models"
	"go-biz-server/internal/mpesa"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type fakeGateway struct {
	result *mpesa.StkPushResult
	err    error
	calls  int
}

func (f *fakeGateway) StkPush(_ context.Context, _ uint, _ string, _ float64) (*mpesa.StkPushResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestService(t *testing.T, gw Gateway) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	if gw == nil {
		gw = &fakeGateway{result: &mpesa.StkPushResult{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}}
	}
	return NewService(db, gw, zap.NewNop()), db
}

func seedSnack(t *testing.T, db *gorm.DB, name string, price float64, qty int) {
	t.Helper()
	if err := db.Create(&models.Snack{Name: name, Price: price, QuantityAvailable: qty, IsActive: true}).Error; err != nil {
		t.Fatalf("seed snack: %v", err)
	}
}

func TestCreateTransactionComputesTotal(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)

	// Caller-supplied price is a lie; the stored price must win.
	cart := []models.CartItem{{Name: "Soda", Price: 1, Quantity: 2}}
	tx, err := svc.CreateTransaction(context.Background(), 7, "0712345678", cart, models.MethodMpesa)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	if tx.TotalAmount != 100 {
		t.Fatalf("total = %v, want 100", tx.TotalAmount)
	}
	if tx.Status != models.StatusCreated {
		t.Fatalf("status = %s, want Created", tx.Status)
	}
	if tx.Code() != "TXN000001" {
		t.Fatalf("code = %s, want TXN000001", tx.Code())
	}

	items, err := tx.Items()
	if err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 1 || items[0].Price != 50 || items[0].Quantity != 2 {
		t.Fatalf("unexpected stored items: %+v", items)
	}

	var snack models.Snack
	if err := db.Where("name = ?", "Soda").First(&snack).Error; err != nil {
		t.Fatalf("reload snack: %v", err)
	}
	if snack.QuantityAvailable != 8 {
		t.Fatalf("stock = %d, want 8", snack.QuantityAvailable)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)

	cases := []struct {
		name     string
		customer string
		items    []models.CartItem
		method   string
	}{
		{"empty customer", "", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa},
		{"empty cart", "0712345678", nil, models.MethodMpesa},
		{"zero quantity", "0712345678", []models.CartItem{{Name: "Soda", Quantity: 0}}, models.MethodMpesa},
		{"negative quantity", "0712345678", []models.CartItem{{Name: "Soda", Quantity: -1}}, models.MethodMpesa},
		{"unknown method", "0712345678", []models.CartItem{{Name: "Soda", Quantity: 1}}, "Barter"},
		{"unknown item", "0712345678", []models.CartItem{{Name: "Ghost", Quantity: 1}}, models.MethodMpesa},
	}

	for _, tc := range cases {
		_, err := svc.CreateTransaction(context.Background(), 1, tc.customer, tc.items, tc.method)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestCreateTransactionInsufficientStockRollsBack(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 3)
	seedSnack(t, db, "Crisps", 30, 1)

	// Soda succeeds, Crisps fails: the Soda decrement must roll back too.
	cart := []models.CartItem{
		{Name: "Soda", Quantity: 2},
		{Name: "Crisps", Quantity: 5},
	}
	_, err := svc.CreateTransaction(context.Background(), 1, "0712345678", cart, models.MethodCash)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	var soda models.Snack
	db.Where("name = ?", "Soda").First(&soda)
	if soda.QuantityAvailable != 3 {
		t.Fatalf("soda stock = %d, want 3 (rollback)", soda.QuantityAvailable)
	}

	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	if count != 0 {
		t.Fatalf("no transaction should exist, found %d", count)
	}
}

func TestCreateTransactionRejectsRetiredSnack(t *testing.T) {
	svc, db := newTestService(t, nil)
	if err := db.Create(&models.Snack{Name: "Old Bar", Price: 20, QuantityAvailable: 5, IsActive: false}).Error; err != nil {
		t.Fatalf("seed retired snack: %v", err)
	}

	cart := []models.CartItem{{Name: "Old Bar", Quantity: 1}}
	_, err := svc.CreateTransaction(context.Background(), 1, "0712345678", cart, models.MethodCash)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for retired snack, got %v", err)
	}

	var snack models.Snack
	if err := db.Where("name = ?", "Old Bar").First(&snack).Error; err != nil {
		t.Fatalf("reload snack: %v", err)
	}
	if snack.QuantityAvailable != 5 {
		t.Fatalf("retired snack stock = %d, want 5", snack.QuantityAvailable)
	}
}

func TestCashSaleCompletesImmediately(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)

	tx, err := svc.CreateTransaction(context.Background(), 1, "walk-in", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodCash)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if tx.Status != models.StatusCompleted {
		t.Fatalf("cash sale status = %s, want Completed", tx.Status)
	}
}

func successCallback(receipt string, amount float64) mpesa.StkCallback {
	var cb mpesa.StkCallback
	cb.ResultCode = 0
	cb.ResultDesc = "The service request is processed successfully."
	cb.CallbackMetadata.Item = []mpesa.MetadataItem{
		{Name: "Amount", Value: amount},
		{Name: "MpesaReceiptNumber", Value: receipt},
		{Name: "TransactionDate", Value: float64(20260831103000)},
		{Name: "PhoneNumber", Value: float64(254712345678)},
	}
	return cb
}

func TestPaymentFlowEndToEnd(t *testing.T) {
	gw := &fakeGateway{result: &mpesa.StkPushResult{CheckoutRequestID: "ws_CO_42", ResponseCode: "0"}}
	svc, db := newTestService(t, gw)
	seedSnack(t, db, "Soda", 50, 10)

	ctx := context.Background()
	tx, err := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 2}}, models.MethodMpesa)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.TotalAmount != 100 || tx.Status != models.StatusCreated {
		t.Fatalf("unexpected created transaction: %+v", tx)
	}

	if _, err := svc.RequestPayment(ctx, tx.ID); err != nil {
		t.Fatalf("request payment: %v", err)
	}

	reloaded, _ := svc.GetTransaction(ctx, tx.ID)
	if reloaded.Status != models.StatusPendingPayment {
		t.Fatalf("status after push = %s, want PendingPayment", reloaded.Status)
	}
	if reloaded.CheckoutRequestID == nil || *reloaded.CheckoutRequestID != "ws_CO_42" {
		t.Fatalf("checkout request id not stored: %+v", reloaded.CheckoutRequestID)
	}

	if err := svc.HandleCallback(ctx, tx.ID, successCallback("ABC123", 100)); err != nil {
		t.Fatalf("callback: %v", err)
	}

	done, _ := svc.GetTransaction(ctx, tx.ID)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status after callback = %s, want Completed", done.Status)
	}
	if done.MpesaReceipt == nil || *done.MpesaReceipt != "ABC123" {
		t.Fatalf("receipt not stored: %+v", done.MpesaReceipt)
	}
}

func TestCallbackIsIdempotent(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)

	ctx := context.Background()
	tx, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 2}}, models.MethodMpesa)
	if _, err := svc.RequestPayment(ctx, tx.ID); err != nil {
		t.Fatalf("request payment: %v", err)
	}

	if err := svc.HandleCallback(ctx, tx.ID, successCallback("ABC123", 100)); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	// The provider redelivers the same notification.
	if err := svc.HandleCallback(ctx, tx.ID, successCallback("ABC123", 100)); err != nil {
		t.Fatalf("redelivered callback should be a no-op, got %v", err)
	}
	// Even a contradictory late failure must not dislodge the terminal state.
	if err := svc.HandleCallback(ctx, tx.ID, mpesa.StkCallback{ResultCode: 1032, ResultDesc: "Request cancelled by user"}); err != nil {
		t.Fatalf("late failure callback should be a no-op, got %v", err)
	}

	final, _ := svc.GetTransaction(ctx, tx.ID)
	if final.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want Completed", final.Status)
	}
	if final.MpesaReceipt == nil || *final.MpesaReceipt != "ABC123" {
		t.Fatalf("receipt changed: %+v", final.MpesaReceipt)
	}
}

func TestCallbackFailureStoresNoReceipt(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)

	ctx := context.Background()
	tx, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 2}}, models.MethodMpesa)
	if _, err := svc.RequestPayment(ctx, tx.ID); err != nil {
		t.Fatalf("request payment: %v", err)
	}

	if err := svc.HandleCallback(ctx, tx.ID, mpesa.StkCallback{ResultCode: 1, ResultDesc: "Insufficient funds"}); err != nil {
		t.Fatalf("callback: %v", err)
	}

	failed, _ := svc.GetTransaction(ctx, tx.ID)
	if failed.Status != models.StatusFailed {
		t.Fatalf("status = %s, want Failed", failed.Status)
	}
	if failed.MpesaReceipt != nil {
		t.Fatalf("failed payment must not store a receipt: %v", *failed.MpesaReceipt)
	}

	// A success arriving after the failure must not resurrect it.
	if err := svc.HandleCallback(ctx, tx.ID, successCallback("LATE1", 100)); err != nil {
		t.Fatalf("late success callback: %v", err)
	}
	still, _ := svc.GetTransaction(ctx, tx.ID)
	if still.Status != models.StatusFailed || still.MpesaReceipt != nil {
		t.Fatalf("terminal Failed state changed: %+v", still)
	}
}

func TestRequestPaymentGuards(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedSnack(t, db, "Soda", 50, 10)
	ctx := context.Background()

	if _, err := svc.RequestPayment(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}

	cash, _ := svc.CreateTransaction(ctx, 1, "walk-in", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodCash)
	if _, err := svc.RequestPayment(ctx, cash.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("cash sale: expected ErrValidation, got %v", err)
	}

	mp, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa)
	if _, err := svc.RequestPayment(ctx, mp.ID); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if _, err := svc.RequestPayment(ctx, mp.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("second push on pending: expected ErrValidation, got %v", err)
	}
}

func TestRequestPaymentUpstreamFailureLeavesCreated(t *testing.T) {
	gw := &fakeGateway{err: errors.New("connect: connection refused")}
	svc, db := newTestService(t, gw)
	seedSnack(t, db, "Soda", 50, 10)
	ctx := context.Background()

	tx, _ := svc.CreateTransaction(ctx, 1, "0712345678", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa)

	_, err := svc.RequestPayment(ctx, tx.ID)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	// Still Created, so the caller may retry the push.
	reloaded, _ := svc.GetTransaction(ctx, tx.ID)
	if reloaded.Status != models.StatusCreated {
		t.Fatalf("status = %s, want Created", reloaded.Status)
	}

	gw.err = nil
	gw.result = &mpesa.StkPushResult{CheckoutRequestID: "ws_CO_retry", ResponseCode: "0"}
	if _, err := svc.RequestPayment(ctx, tx.ID); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
}

func TestRequestPaymentInvalidPhone(t *testing.T) {
	gw := &fakeGateway{err: mpesa.ErrInvalidPhone}
	svc, db := newTestService(t, gw)
	seedSnack(t, db, "Soda", 50, 10)
	ctx := context.Background()

	tx, _ := svc.CreateTransaction(ctx, 1, "12345", []models.CartItem{{Name: "Soda", Quantity: 1}}, models.MethodMpesa)

	if _, err := svc.RequestPayment(ctx, tx.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad phone, got %v", err)
	}
}
