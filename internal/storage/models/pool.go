// internal/storage/models/pool.go
package models

import "github.com/shopspring/decimal"

type Pool struct {
	BaseModel
	Address     string `gorm:"primaryKey;type:varchar(44)"`
	Admin       string `gorm:"index;not null;type:varchar(44)"`
	StakeMint   string `gorm:"index;not null;type:varchar(44)"`
	RewardMint  string `gorm:"not null;type:varchar(44)"`
	StakeVault  string `gorm:"not null;type:varchar(44)"`
	RewardVault string `gorm:"not null;type:varchar(44)"`

	RewardRate decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	LastUpdate int64           `gorm:"not null"`
	// RewardPerShare is a 128 bit accumulator.
	RewardPerShare decimal.Decimal `gorm:"type:numeric(39,0);not null"`
	TotalStaked    decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	Stakers        decimal.Decimal `gorm:"type:numeric(20,0);not null"`
}

type UserStake struct {
	BaseModel
	Address string `gorm:"primaryKey;type:varchar(44)"`
	Pool    string `gorm:"index;not null;type:varchar(44)"`
	Owner   string `gorm:"index;not null;type:varchar(44)"`

	Amount     decimal.Decimal `gorm:"type:numeric(20,0);not null"`
	RewardDebt decimal.Decimal `gorm:"type:numeric(39,0);not null"`
	Unclaimed  decimal.Decimal `gorm:"type:numeric(20,0);not null"`
}
