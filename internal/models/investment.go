package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"
)

func (o OrderType) IsValid() bool {
	return o == OrderTypeBuy || o == OrderTypeSell
}

// InvestmentCard groups the buy/sell orders of one month.
type InvestmentCard struct {
	ID        uint             `gorm:"primaryKey"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_investment_cards_user_month"`
	Month     int              `gorm:"not null;uniqueIndex:idx_investment_cards_user_month"`
	Year      int              `gorm:"not null;uniqueIndex:idx_investment_cards_user_month"`
	Items     []InvestmentItem `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type InvestmentItem struct {
	ID            uint            `gorm:"primaryKey"`
	CardID        uint            `gorm:"index;not null"`
	AssetID       uint            `gorm:"index;not null"`
	Asset         Asset           `gorm:"constraint:OnDelete:CASCADE"`
	OrderType     OrderType       `gorm:"size:6;not null;default:BUY"`
	Quantity      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	OperationDate time.Time       `gorm:"type:date;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Total is quantity times unit price.
func (i InvestmentItem) Total() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}
