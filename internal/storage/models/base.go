// internal/storage/models/base.go
package models

import "time"

// BaseModel carries the bookkeeping columns. Records are keyed by their
// derived address, so there is no surrogate id.
type BaseModel struct {
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
