// Package option composes reusable gorm query modifiers for list endpoints.
package option

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/kado/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// Operator enumerates supported comparison operators.
type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition describes a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator filters by a field comparison.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		return db.Where(fmt.Sprintf("%s %s ?", field, cond.Operator), cond.Value)
	})
}

// In filters by membership in a value set.
func In(field string, values any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field = strings.TrimSpace(field)
		if field == "" {
			return db
		}
		return db.Where(fmt.Sprintf("%s IN ?", field), values)
	})
}

// ApplyPagination applies cursor pagination. The statement fetches one row
// past the requested size so callers can detect a next page.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if token := strings.TrimSpace(p.PageToken); token != "" {
			cursor, err := pagination.DecodeCursor(token)
			if err == nil && cursor != nil && cursor.CreatedAt != "" {
				db = db.Where(
					"(created_at < ?) OR (created_at = ? AND id < ?)",
					cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
				)
			}
		}

		return db.Limit(p.Limit() + 1)
	})
}

// WithSortBy orders the statement by a pre-validated clause.
func WithSortBy(clause string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if strings.TrimSpace(clause) == "" {
			return db
		}
		return db.Order(clause)
	})
}

// WithQuerySortBy validates a requested sort field against an allow list and
// falls back to created_at descending.
func WithQuerySortBy(field, direction string, allowed map[string]bool) string {
	field = strings.TrimSpace(strings.ToLower(field))
	if field == "" || !allowed[field] {
		field = "created_at"
	}
	direction = strings.TrimSpace(strings.ToLower(direction))
	if direction != "asc" {
		direction = "desc"
	}
	return field + " " + direction
}
