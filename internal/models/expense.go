package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups expenses; names are unique per user.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_categories_user_name"`
	Name      string `gorm:"size:100;not null;uniqueIndex:idx_categories_user_name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InstallmentExpense is the parent contract of a purchase split into
// monthly installments. Its Expense rows are created together with it.
type InstallmentExpense struct {
	ID                   uint            `gorm:"primaryKey"`
	UserID               uint            `gorm:"index;not null"`
	Name                 string          `gorm:"size:255;not null"`
	TotalAmount          decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	InstallmentsQuantity int             `gorm:"not null"`
	FirstDueDate         time.Time       `gorm:"type:date;not null"`
	CategoryID           *uint           `gorm:"index"`
	Category             *Category       `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Expense is a single dated bill. InstallmentOriginID is set when the row
// was generated by an InstallmentExpense.
type Expense struct {
	ID                  uint                `gorm:"primaryKey"`
	UserID              uint                `gorm:"index;not null"`
	Name                string              `gorm:"size:255;not null"`
	Amount              decimal.Decimal     `gorm:"type:numeric(10,2);not null"`
	DueDate             time.Time           `gorm:"type:date;index;not null"`
	PaymentDate         *time.Time          `gorm:"type:date"`
	Paid                bool                `gorm:"not null;default:false"`
	CategoryID          *uint               `gorm:"index"`
	Category            *Category           `gorm:"constraint:OnDelete:SET NULL"`
	InstallmentOriginID *uint               `gorm:"index"`
	InstallmentOrigin   *InstallmentExpense `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RecurringExpense is a monthly obligation. It is never materialized into
// Expense rows; the monthly view projects it instead.
type RecurringExpense struct {
	ID         uint            `gorm:"primaryKey"`
	UserID     uint            `gorm:"index;not null"`
	Name       string          `gorm:"size:255;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	DueDay     int             `gorm:"not null"` // 1-31
	CategoryID *uint           `gorm:"index"`
	Category   *Category       `gorm:"constraint:OnDelete:SET NULL"`
	StartDate  time.Time       `gorm:"type:date;not null"`
	EndDate    *time.Time      `gorm:"type:date"`
	Active     bool            `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaidRecurringExpense marks a recurring expense as paid for one month.
type PaidRecurringExpense struct {
	ID                 uint             `gorm:"primaryKey"`
	RecurringExpenseID uint             `gorm:"not null;uniqueIndex:idx_paid_recurring_month"`
	RecurringExpense   RecurringExpense `gorm:"constraint:OnDelete:CASCADE"`
	PaymentDate        time.Time        `gorm:"type:date;not null"`
	Month              int              `gorm:"not null;uniqueIndex:idx_paid_recurring_month"`
	Year               int              `gorm:"not null;uniqueIndex:idx_paid_recurring_month"`
	CreatedAt          time.Time
}
