package handlers

import (
	"net/http"
	"time"

	"go-biz-server/internal/models"

	"github.com/gin-gonic/gin"
)

// The daily record forms: employees key in what each business made.

type FarmRecordRequest struct {
	Product  string  `json:"product" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	DateSold string  `json:"date_sold" binding:"required"`
}

// --- POST /api/farm ---
func (h *Handler) CreateFarmRecord(c *gin.Context) {
	var req FarmRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product, quantity, price and date are required"})
		return
	}

	date, err := time.Parse("2006-01-02", req.DateSold)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
		return
	}

	record := models.FarmRecord{
		EmployeeID: c.MustGet("userID").(uint),
		Product:    req.Product,
		Quantity:   req.Quantity,
		Price:      req.Price,
		DateSold:   date,
	}
	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save farm record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Farm record added successfully", "id": record.ID})
}

type PoolRecordRequest struct {
	AmountCollected float64 `json:"amount_collected" binding:"required,gt=0"`
	DateRecorded    string  `json:"date_recorded" binding:"required"`
}

// --- POST /api/pool ---
func (h *Handler) CreatePoolRecord(c *gin.Context) {
	var req PoolRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount and date are required"})
		return
	}

	date, err := time.Parse("2006-01-02", req.DateRecorded)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
		return
	}

	record := models.PoolRecord{
		EmployeeID:      c.MustGet("userID").(uint),
		AmountCollected: req.AmountCollected,
		DateRecorded:    date,
	}
	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save pool record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pool record added successfully", "id": record.ID})
}

type StationRecordRequest struct {
	TotalAmount  float64 `json:"total_amount" binding:"required,gt=0"`
	DateRecorded string  `json:"date_recorded" binding:"required"`
}

// --- POST /api/ps-station ---
func (h *Handler) CreateStationRecord(c *gin.Context) {
	var req StationRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount and date are required"})
		return
	}

	date, err := time.Parse("2006-01-02", req.DateRecorded)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
		return
	}

	record := models.StationRecord{
		EmployeeID:   c.MustGet("userID").(uint),
		TotalAmount:  req.TotalAmount,
		DateRecorded: date,
	}
	if err := h.db.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save PS station record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "PS Station record added successfully", "id": record.ID})
}

// --- GET /api/businesses ---
func (h *Handler) ListBusinesses(c *gin.Context) {
	var businesses []models.Business
	if err := h.db.Order("id").Find(&businesses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch businesses"})
		return
	}
	c.JSON(http.StatusOK, businesses)
}

type ExpenseRequest struct {
	BusinessID  uint    `json:"business_id" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	DateExpense string  `json:"date_expense" binding:"required"`
}

// --- POST /api/expenses (admin) ---
func (h *Handler) CreateExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Business, description, amount and date are required"})
		return
	}

	date, err := time.Parse("2006-01-02", req.DateExpense)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
		return
	}

	var business models.Business
	if err := h.db.First(&business, req.BusinessID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		return
	}

	expense := models.Expense{
		BusinessID:  business.ID,
		Description: req.Description,
		Amount:      req.Amount,
		DateExpense: date,
	}
	if err := h.db.Create(&expense).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save expense"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense added successfully", "id": expense.ID})
}
