package sales

import (
	"context"
	"fmt"

	"go-biz-server/internal/metrics"
	"go-biz-server/internal/models"
	"go-biz-server/internal/mpesa"

	"go.uber.org/zap"
)

// HandleCallback applies the provider's payment result to the transaction
// the callback URL was keyed with.
//
// The provider may redeliver the same notification, so both transitions
// are conditional on the transaction still being PendingPayment. A replay
// against a terminal transaction matches zero rows and is a no-op; the
// transaction keeps its status and receipt.
func (s *Service) HandleCallback(ctx context.Context, transactionID uint, cb mpesa.StkCallback) error {
	t, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	if cb.Success() {
		receipt := cb.MetaString("MpesaReceiptNumber")
		res := s.db.WithContext(ctx).Model(&models.Transaction{}).
			Where("id = ? AND status = ?", transactionID, models.StatusPendingPayment).
			Updates(map[string]interface{}{
				"status":        models.StatusCompleted,
				"mpesa_receipt": receipt,
			})
		if res.Error != nil {
			return fmt.Errorf("%w: complete transaction: %v", ErrPersistence, res.Error)
		}
		if res.RowsAffected == 0 {
			s.log.Info("callback ignored, transaction not pending",
				zap.Uint("transaction_id", transactionID),
				zap.String("status", t.Status))
			return nil
		}

		metrics.Callbacks.WithLabelValues("success").Inc()
		s.log.Info("payment completed",
			zap.Uint("transaction_id", transactionID),
			zap.String("receipt", receipt),
			zap.Float64("amount", cb.MetaFloat("Amount")),
			zap.String("phone", cb.MetaString("PhoneNumber")),
			zap.String("transaction_date", cb.MetaString("TransactionDate")))
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, models.StatusPendingPayment).
		Update("status", models.StatusFailed)
	if res.Error != nil {
		return fmt.Errorf("%w: fail transaction: %v", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		s.log.Info("callback ignored, transaction not pending",
			zap.Uint("transaction_id", transactionID),
			zap.String("status", t.Status))
		return nil
	}

	metrics.Callbacks.WithLabelValues("failed").Inc()
	s.log.Info("payment failed",
		zap.Uint("transaction_id", transactionID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc))
	return nil
}
