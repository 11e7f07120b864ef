package repository

import "gorm.io/gorm"

// Sentinel errors shared by every repository implementation
var (
	ErrNotFound  = gorm.ErrRecordNotFound
	ErrDuplicate = gorm.ErrDuplicatedKey
)
