package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// User - an employee or the admin logging into the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'employee'
	CreatedAt    time.Time `json:"created_at"`
}

// Business - one of the units money flows through (Farm, Pool, ...)
type Business struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:100" json:"name"`
}

// Snack - the snack center inventory
type Snack struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	Name              string  `gorm:"uniqueIndex;size:100" json:"name"`
	Price             float64 `json:"price"`
	QuantityAvailable int     `json:"quantity_available"`
	IsActive          bool    `gorm:"default:true" json:"is_active"`
	ImageURL          string  `json:"image_url"`
}

// Payment methods accepted at the snack counter.
const (
	MethodMpesa = "M-Pesa"
	MethodCash  = "Cash"
	MethodCard  = "Card"
	MethodOther = "Other"
)

// Transaction statuses. Created and PendingPayment are transient;
// Completed and Failed are terminal and never change again.
const (
	StatusCreated        = "Created"
	StatusPendingPayment = "PendingPayment"
	StatusCompleted      = "Completed"
	StatusFailed         = "Failed"
)

// ValidMethod reports whether m is a payment method we accept.
func ValidMethod(m string) bool {
	switch m {
	case MethodMpesa, MethodCash, MethodCard, MethodOther:
		return true
	}
	return false
}

// TerminalStatus reports whether s allows no further transitions.
func TerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusFailed
}

// CartItem is one line of a snack sale. The list is snapshotted onto the
// transaction row as JSON, so the sale keeps the price it was made at.
type CartItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Transaction - a snack center sale, possibly paid through M-Pesa
type Transaction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	EmployeeID        uint      `json:"employee_id"`
	CustomerNumber    string    `json:"customer_number"`
	TotalAmount       float64   `json:"total_amount"`
	ItemsJSON         string    `json:"-"`
	PaymentMethod     string    `json:"payment_method"`
	Status            string    `json:"status"`
	CheckoutRequestID *string    `json:"checkout_request_id,omitempty"` // provider reference from the push
	MpesaReceipt      *string    `json:"mpesa_receipt,omitempty"`       // receipt from a successful callback
	PendingAt         *time.Time `json:"pending_at,omitempty"`          // when the push was accepted
	DateRecorded      time.Time  `json:"date_recorded"`
}

// Code is the display code shown on receipts, e.g. TXN000042.
func (t *Transaction) Code() string {
	return fmt.Sprintf("TXN%06d", t.ID)
}

// Items decodes the snapshotted cart lines.
func (t *Transaction) Items() ([]CartItem, error) {
	var items []CartItem
	if err := json.Unmarshal([]byte(t.ItemsJSON), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FarmRecord - a farm produce sale submitted by an employee
type FarmRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmployeeID uint      `json:"employee_id"`
	Product    string    `json:"product"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	DateSold   time.Time `json:"date_sold"`
}

// PoolRecord - daily takings from the swimming pool
type PoolRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	EmployeeID      uint      `json:"employee_id"`
	AmountCollected float64   `json:"amount_collected"`
	DateRecorded    time.Time `json:"date_recorded"`
}

// StationRecord - daily takings from the PS gaming station
type StationRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EmployeeID   uint      `json:"employee_id"`
	TotalAmount  float64   `json:"total_amount"`
	DateRecorded time.Time `json:"date_recorded"`
}

// Expense - money going out, attributed to one business
type Expense struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BusinessID  uint      `json:"business_id"`
	Business    Business  `json:"business"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	DateExpense time.Time `json:"date_expense"`
}
