package database

import (
	"sort"
	"time"

	"go-biz-server/internal/models"

	"gorm.io/gorm"
)

// LedgerEntry is one row of the admin dashboard: a dated amount of money
// moving in or out of one business unit.
type LedgerEntry struct {
	Business string    `json:"business"`
	RecordID uint      `json:"id"`
	Amount   float64   `json:"amount"`
	Date     time.Time `json:"date"`
	Type     string    `json:"type"` // 'income' or 'expense'
}

// BusinessSummary folds the ledger into one line per business.
type BusinessSummary struct {
	Business string  `json:"business"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

// Ledger collects income from every record table plus expenses, newest
// first. Only completed snack sales count as income; a sale whose payment
// never arrived is not revenue.
func Ledger(db *gorm.DB) ([]LedgerEntry, error) {
	var entries []LedgerEntry

	var farms []models.FarmRecord
	if err := db.Find(&farms).Error; err != nil {
		return nil, err
	}
	for _, r := range farms {
		entries = append(entries, LedgerEntry{Business: "Farm", RecordID: r.ID, Amount: r.Price, Date: r.DateSold, Type: "income"})
	}

	var pools []models.PoolRecord
	if err := db.Find(&pools).Error; err != nil {
		return nil, err
	}
	for _, r := range pools {
		entries = append(entries, LedgerEntry{Business: "Pool", RecordID: r.ID, Amount: r.AmountCollected, Date: r.DateRecorded, Type: "income"})
	}

	var stations []models.StationRecord
	if err := db.Find(&stations).Error; err != nil {
		return nil, err
	}
	for _, r := range stations {
		entries = append(entries, LedgerEntry{Business: "PS Station", RecordID: r.ID, Amount: r.TotalAmount, Date: r.DateRecorded, Type: "income"})
	}

	var sales []models.Transaction
	if err := db.Where("status = ?", models.StatusCompleted).Find(&sales).Error; err != nil {
		return nil, err
	}
	for _, t := range sales {
		entries = append(entries, LedgerEntry{Business: "Snack Center", RecordID: t.ID, Amount: t.TotalAmount, Date: t.DateRecorded, Type: "income"})
	}

	var expenses []models.Expense
	if err := db.Preload("Business").Find(&expenses).Error; err != nil {
		return nil, err
	}
	for _, e := range expenses {
		entries = append(entries, LedgerEntry{Business: e.Business.Name, RecordID: e.ID, Amount: e.Amount, Date: e.DateExpense, Type: "expense"})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	return entries, nil
}

// Summarize folds ledger entries into per-business income/expense/profit.
func Summarize(entries []LedgerEntry) []BusinessSummary {
	byName := make(map[string]*BusinessSummary)
	var order []string

	for _, e := range entries {
		s, ok := byName[e.Business]
		if !ok {
			s = &BusinessSummary{Business: e.Business}
			byName[e.Business] = s
			order = append(order, e.Business)
		}
		if e.Type == "expense" {
			s.Expenses += e.Amount
		} else {
			s.Income += e.Amount
		}
	}

	sort.Strings(order)
	summaries := make([]BusinessSummary, 0, len(order))
	for _, name := range order {
		s := byName[name]
		s.Profit = s.Income - s.Expenses
		summaries = append(summaries, *s)
	}
	return summaries
}

// SnackRevenue totals completed snack sales in a date range. Used by the
// admin assistant.
func SnackRevenue(db *gorm.DB, start, end time.Time) (float64, int64, error) {
	var revenue float64
	err := db.Model(&models.Transaction{}).
		Where("status = ? AND date_recorded BETWEEN ? AND ?", models.StatusCompleted, start, end).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&revenue).Error
	if err != nil {
		return 0, 0, err
	}

	var count int64
	err = db.Model(&models.Transaction{}).
		Where("status = ? AND date_recorded BETWEEN ? AND ?", models.StatusCompleted, start, end).
		Count(&count).Error
	if err != nil {
		return 0, 0, err
	}
	return revenue, count, nil
}
