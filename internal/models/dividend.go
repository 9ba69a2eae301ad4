package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendCard groups the dividends a user received in one month.
type DividendCard struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_dividend_cards_user_month"`
	Month     int            `gorm:"not null;uniqueIndex:idx_dividend_cards_user_month"`
	Year      int            `gorm:"not null;uniqueIndex:idx_dividend_cards_user_month"`
	Items     []DividendItem `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DividendItem struct {
	ID           uint            `gorm:"primaryKey"`
	CardID       uint            `gorm:"index;not null"`
	AssetID      uint            `gorm:"index;not null"`
	Asset        Asset           `gorm:"constraint:OnDelete:CASCADE"`
	Value        decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	ReceivedDate time.Time       `gorm:"type:date;not null"`
	CreatedAt    time.Time
}
