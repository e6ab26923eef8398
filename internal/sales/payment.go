package sales

import (
	"context"
	"errors"
	"fmt"

	"go-biz-server/internal/metrics"
	"go-biz-server/internal/models"
	"go-biz-server/internal/mpesa"

	"go.uber.org/zap"
)

// RequestPayment asks the provider to prompt the customer's phone for the
// transaction amount. On acceptance the transaction moves
// Created -> PendingPayment and keeps the provider's checkout reference.
// If the provider is unreachable the transaction stays Created so the
// caller can retry.
func (s *Service) RequestPayment(ctx context.Context, transactionID uint) (*mpesa.StkPushResult, error) {
	t, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if t.PaymentMethod != models.MethodMpesa {
		return nil, fmt.Errorf("%w: transaction %s is a %s sale, not M-Pesa", ErrValidation, t.Code(), t.PaymentMethod)
	}
	if t.Status != models.StatusCreated {
		return nil, fmt.Errorf("%w: transaction %s is already %s", ErrValidation, t.Code(), t.Status)
	}

	result, err := s.gateway.StkPush(ctx, t.ID, t.CustomerNumber, t.TotalAmount)
	if err != nil {
		if errors.Is(err, mpesa.ErrInvalidPhone) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// Conditional update: only a Created transaction may move to
	// PendingPayment. If another push won the race this is a no-op.
	// pending_at anchors the expiry sweep: the clock starts when the
	// provider accepts the push, not when the sale was recorded, since
	// a push may be retried long after creation.
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", t.ID, models.StatusCreated).
		Updates(map[string]interface{}{
			"status":              models.StatusPendingPayment,
			"checkout_request_id": result.CheckoutRequestID,
			"pending_at":          s.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: mark pending: %v", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		s.log.Warn("push accepted but transaction no longer Created",
			zap.Uint("transaction_id", t.ID))
		return result, nil
	}

	metrics.PushesSent.Inc()
	s.log.Info("payment push sent",
		zap.Uint("transaction_id", t.ID),
		zap.String("checkout_request_id", result.CheckoutRequestID))
	return result, nil
}
