package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type AssetType string

const (
	AssetTypeStock AssetType = "ACAO" // ação
	AssetTypeFII   AssetType = "FII"  // fundo imobiliário
	AssetTypeBDR   AssetType = "BDR"
	AssetTypeETF   AssetType = "ETF"
)

func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeStock, AssetTypeFII, AssetTypeBDR, AssetTypeETF:
		return true
	}
	return false
}

type Asset struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_assets_user_code"`
	Code      string    `gorm:"size:10;not null;uniqueIndex:idx_assets_user_code"`
	Type      AssetType `gorm:"size:4;not null;default:ACAO"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeSave normalizes the ticker code.
func (a *Asset) BeforeSave(tx *gorm.DB) error {
	a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
	if a.Type == "" {
		a.Type = AssetTypeStock
	}
	return nil
}
