package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultPageSize is used when the caller does not ask for a page size
	DefaultPageSize = 20
	// MaxPageSize is the maximum allowed page size for paginated queries
	MaxPageSize = 200
)

// NormalizePagination clamps page and page size to sane values
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// paginate is a gorm scope applying offset/limit for a 1-based page
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, pageSize = NormalizePagination(page, pageSize)
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// forUpdate locks the selected rows until the surrounding transaction ends.
// Dialects without row locks (sqlite) ignore the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
