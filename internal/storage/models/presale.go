// internal/storage/models/presale.go
package models

import "github.com/shopspring/decimal"

// Amounts are unsigned 64 bit and stored as numeric(20,0).

type Presale struct {
	BaseModel
	Address     string `gorm:"primaryKey;type:varchar(44)"`
	Admin       string `gorm:"index;not null;type:varchar(44)"`
	Mint        string `gorm:"index;not null;type:varchar(44)"`
	PaymentMint string `gorm:"not null;type:varchar(44)"`
	Treasury    string `gorm:"not null;type:varchar(44)"`
	Vault       string `gorm:"not null;type:varchar(44)"`

	PublicSalePrice decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	MaxTokens       decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	MaxSol          decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	MinPurchase     decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	MaxPurchase     decimal.Decimal `gorm:"type:numeric(20,0);not null"`

	PriceFeed           string          `gorm:"type:varchar(64)"`
	UsdPrice            decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	ManualPriceOverride decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	MaxManualPrice      decimal.Decimal `gorm:"type:numeric(20,0);not null"`

	PresaleStart    int64 `gorm:"not null"`
	PresaleEnd      int64 `gorm:"not null"`
	PublicSaleStart int64 `gorm:"not null"`
	CliffPeriod     int64 `gorm:"not null"`
	CliffTimestamp  int64 `gorm:"not null"`
	VestingPeriod   int64 `gorm:"not null"`
	VestingInterval int64 `gorm:"not null"`

	AirdropPercentages []uint8 `gorm:"serializer:json"`

	TotalTokensAllocated decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	TotalSolCollected    decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	Contributors         decimal.Decimal `gorm:"type:numeric(20,0);not null"`

	IsClosed bool `gorm:"not null"`
	Paused   bool `gorm:"not null"`
}

type Allocation struct {
	BaseModel
	Address     string `gorm:"primaryKey;type:varchar(44)"`
	Presale     string `gorm:"index;not null;type:varchar(44)"`
	Contributor string `gorm:"index;not null;type:varchar(44)"`

	TotalTokens       decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	ClaimedTokens     decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	AirdropsCompleted int             `gorm:"not null"`
	Contributed       decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	Cost              decimal.Decimal `gorm:"type:numeric(20,0);not null;default:0"`
	CliffTimestamp    int64           `gorm:"not null"`
	StartTime         int64           `gorm:"not null"`
}
