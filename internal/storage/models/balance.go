// internal/storage/models/balance.go
package models

import "github.com/shopspring/decimal"

// Balance is the holding of one account in one asset.
type Balance struct {
	BaseModel
	Asset   string          `gorm:"primaryKey;type:varchar(44)"`
	Account string          `gorm:"primaryKey;type:varchar(44)"`
	Amount  decimal.Decimal `gorm:"type:numeric(20,0);not null"`
}
