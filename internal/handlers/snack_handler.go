package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-biz-server/internal/models"

	"github.com/gin-gonic/gin"
)

// --- GET: List active snacks for the sale form ---
func (h *Handler) ListSnacks(c *gin.Context) {
	var snacks []models.Snack

	if err := h.db.Where("is_active = ?", true).Order("name").Find(&snacks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch snacks"})
		return
	}

	c.JSON(http.StatusOK, snacks)
}

// --- POST: Add a new snack (admin) ---
func (h *Handler) AddSnack(c *gin.Context) {
	var snack models.Snack

	if err := c.ShouldBindJSON(&snack); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if snack.Name == "" || snack.Price < 0 || snack.QuantityAvailable < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, non-negative price and quantity are required"})
		return
	}

	snack.IsActive = true
	if err := h.db.Create(&snack).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Snack already exists"})
		return
	}

	c.JSON(http.StatusCreated, snack)
}

// --- PUT: Update price, stock or active flag (admin) ---
func (h *Handler) UpdateSnack(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid snack ID"})
		return
	}

	var snack models.Snack
	if err := h.db.First(&snack, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snack not found"})
		return
	}

	// A map so we only update what was sent (partial update)
	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := h.db.Model(&snack).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update snack"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Snack updated successfully", "snack": snack})
}

// --- DELETE: Retire a snack (admin) ---
// Sold-out items stay in the table so past sales keep their reference;
// we just flip is_active.
func (h *Handler) DeleteSnack(c *gin.Context) {
	id := c.Param("id")

	res := h.db.Model(&models.Snack{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete snack"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snack not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Snack removed from the menu"})
}

// --- UPLOAD: Snack photo for the sale form ---
func (h *Handler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	// Unique filename, e.g. "167890123_soda.jpg"
	filename := fmt.Sprintf("%d_%s", time.Now().Unix(), file.Filename)
	filepath := "./uploads/" + filename

	if err := c.SaveUploadedFile(file, filepath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"url":     h.cfg.BaseURL + "/uploads/" + filename,
	})
}
