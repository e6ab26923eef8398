package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-biz-server/internal/metrics"
	"go-biz-server/internal/models"
	"go-biz-server/internal/mpesa"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway is the slice of the M-Pesa client the service needs. Tests swap
// in a fake.
type Gateway interface {
	StkPush(ctx context.Context, transactionID uint, phone string, amount float64) (*mpesa.StkPushResult, error)
}

// Service owns the transaction lifecycle: creating sales, requesting
// payment pushes, and reconciling callbacks.
type Service struct {
	db      *gorm.DB
	gateway Gateway
	log     *zap.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, gateway Gateway, log *zap.Logger) *Service {
	return &Service{db: db, gateway: gateway, log: log, now: time.Now}
}

// CreateTransaction records a snack sale from a cart. Everything happens
// inside one database transaction: stock is checked and decremented, and
// the sale row is inserted with the total recomputed from the stored
// prices. A failure anywhere rolls the whole thing back.
//
// The caller's item prices are ignored: the price on the inventory row is
// the source of truth.
func (s *Service) CreateTransaction(ctx context.Context, employeeID uint, customerNumber string, items []models.CartItem, paymentMethod string) (*models.Transaction, error) {
	customerNumber = strings.TrimSpace(customerNumber)
	if customerNumber == "" {
		return nil, fmt.Errorf("%w: customer number is required", ErrValidation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if !models.ValidMethod(paymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, paymentMethod)
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %q must be positive", ErrValidation, item.Name)
		}
	}

	// Non-mobile payments are settled at the counter, so they complete
	// immediately. M-Pesa sales wait for the push/callback cycle.
	status := models.StatusCompleted
	if paymentMethod == models.MethodMpesa {
		status = models.StatusCreated
	}

	var created models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total float64
		lines := make([]models.CartItem, 0, len(items))

		for _, item := range items {
			var snack models.Snack

			// Retired snacks stay on the shelf for old receipts but
			// cannot be sold again.
			err := tx.Where("name = ? AND is_active = ?", item.Name, true).First(&snack).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: unknown item %q", ErrValidation, item.Name)
			}
			if err != nil {
				return fmt.Errorf("%w: load item %q: %v", ErrPersistence, item.Name, err)
			}

			// Conditional decrement: only applies while enough stock is
			// left, so concurrent sales cannot race past each other into
			// a negative quantity.
			res := tx.Model(&models.Snack{}).
				Where("name = ? AND quantity_available >= ?", item.Name, item.Quantity).
				Update("quantity_available", gorm.Expr("quantity_available - ?", item.Quantity))
			if res.Error != nil {
				return fmt.Errorf("%w: update stock for %q: %v", ErrPersistence, snack.Name, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: insufficient stock for %q", ErrValidation, snack.Name)
			}

			total += snack.Price * float64(item.Quantity)
			lines = append(lines, models.CartItem{
				Name:     snack.Name,
				Price:    snack.Price,
				Quantity: item.Quantity,
			})
		}

		payload, err := json.Marshal(lines)
		if err != nil {
			return fmt.Errorf("%w: encode cart: %v", ErrPersistence, err)
		}

		created = models.Transaction{
			EmployeeID:     employeeID,
			CustomerNumber: customerNumber,
			TotalAmount:    total,
			ItemsJSON:      string(payload),
			PaymentMethod:  paymentMethod,
			Status:         status,
			DateRecorded:   s.now(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("%w: insert transaction: %v", ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesCreated.Inc()
	s.log.Info("transaction created",
		zap.Uint("transaction_id", created.ID),
		zap.String("code", created.Code()),
		zap.Float64("total", created.TotalAmount),
		zap.String("method", created.PaymentMethod))
	return &created, nil
}

// GetTransaction looks up one sale; clients poll this for the payment
// outcome since the callback arrives out-of-band.
func (s *Service) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load transaction %d: %v", ErrPersistence, id, err)
	}
	return &t, nil
}
