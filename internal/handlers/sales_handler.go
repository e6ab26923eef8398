package handlers

import (
	"net/http"
	"strconv"

	"go-biz-server/internal/models"
	"go-biz-server/internal/mpesa"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SaleRequest is what the snack center form sends. Any total the client
// computed is ignored; the server recomputes it from inventory prices.
type SaleRequest struct {
	CustomerNumber string            `json:"customer_number"`
	Items          []models.CartItem `json:"items"`
	PaymentMethod  string            `json:"payment_method"`
}

// --- POST /api/snack-center ---
func (h *Handler) CreateSale(c *gin.Context) {
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.MethodMpesa
	}

	employeeID := c.MustGet("userID").(uint)

	t, err := h.sales.CreateTransaction(c.Request.Context(), employeeID, req.CustomerNumber, req.Items, req.PaymentMethod)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Transaction created successfully",
		"id":             t.ID,
		"transaction_id": t.Code(),
		"total_amount":   t.TotalAmount,
		"status":         t.Status,
	})
}

// --- GET /api/snack-center/:id ---
// Clients poll this to observe the payment outcome, since the callback
// arrives out-of-band.
func (h *Handler) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	t, err := h.sales.GetTransaction(c.Request.Context(), uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}

	items, err := t.Items()
	if err != nil {
		// The rest of the transaction is still useful; serve it with an
		// empty cart rather than failing the poll.
		h.log.Error("stored cart is unreadable", zap.Uint("transaction_id", t.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             t.ID,
		"transaction_id": t.Code(),
		"status":         t.Status,
		"total_amount":   t.TotalAmount,
		"payment_method": t.PaymentMethod,
		"mpesa_receipt":  t.MpesaReceipt,
		"items":          items,
		"date_recorded":  t.DateRecorded,
	})
}

// --- POST /api/snack-center/:id/pay ---
// Triggers the STK push for an M-Pesa sale.
func (h *Handler) RequestPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	result, err := h.sales.RequestPayment(c.Request.Context(), uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Payment request sent successfully",
		"transaction_id":      id,
		"checkout_request_id": result.CheckoutRequestID,
		"customer_message":    result.CustomerMessage,
	})
}

// --- POST /api/mpesa/callback/:id ---
// Inbound from the provider. Always acks with ResultCode 0: the provider
// retries on anything else, and retry behavior is keyed on this ack, not
// on our business outcome.
func (h *Handler) MpesaCallback(c *gin.Context) {
	ack := gin.H{"ResultCode": 0, "ResultDesc": "Accepted"}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.log.Warn("callback with bad transaction id", zap.String("raw", c.Param("id")))
		c.JSON(http.StatusOK, ack)
		return
	}

	var envelope mpesa.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.log.Warn("callback with unreadable body", zap.Uint64("transaction_id", id), zap.Error(err))
		c.JSON(http.StatusOK, ack)
		return
	}

	if err := h.sales.HandleCallback(c.Request.Context(), uint(id), envelope.Body.StkCallback); err != nil {
		h.log.Error("callback processing failed", zap.Uint64("transaction_id", id), zap.Error(err))
	}

	c.JSON(http.StatusOK, ack)
}
