package models

import (
	"time"

	"gorm.io/gorm"
)

const DEFAULT_PAGE_SIZE = 100

type BaseModel struct {
	ID        uint      `json:"id,omitempty" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ---------------------------------------------------------------------------------//
// Scopes
// --------------------------------------------------------------------------------//

func offsetLimit(skip, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if skip < 0 {
			skip = 0
		}

		if limit < 0 {
			limit = 0
		}

		return db.Offset(skip).Limit(limit)
	}
}
