package listing

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// GormSource serves pages straight from a gorm-mapped table. Search applies a
// case-insensitive LIKE across the configured columns.
type GormSource[T any] struct {
	DB            *gorm.DB
	SearchColumns []string
	Order         string
	Preloads      []string
	Scope         func(*gorm.DB) *gorm.DB
}

func (s GormSource[T]) Fetch(ctx context.Context, q Query) (Page[T], error) {
	if s.DB == nil {
		return Page[T]{}, gorm.ErrInvalidDB
	}
	q = q.Normalized()

	base := s.DB.WithContext(ctx).Model(new(T))
	if s.Scope != nil {
		base = s.Scope(base)
	}
	if q.Search != "" && len(s.SearchColumns) > 0 {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		clauses := make([]string, len(s.SearchColumns))
		args := make([]any, len(s.SearchColumns))
		for idx, column := range s.SearchColumns {
			clauses[idx] = fmt.Sprintf("lower(%s) LIKE ?", column)
			args[idx] = pattern
		}
		base = base.Where(strings.Join(clauses, " OR "), args...)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[T]{}, fmt.Errorf("count rows: %w", err)
	}

	tx := base.Session(&gorm.Session{})
	for _, preload := range s.Preloads {
		tx = tx.Preload(preload)
	}
	if s.Order != "" {
		tx = tx.Order(s.Order)
	}

	var items []T
	if err := tx.Offset(q.Offset).Limit(q.Limit).Find(&items).Error; err != nil {
		return Page[T]{}, fmt.Errorf("fetch rows: %w", err)
	}

	return Page[T]{
		Items:      items,
		TotalCount: total,
		Offset:     q.Offset,
		HasMore:    int64(q.Offset+len(items)) < total,
	}, nil
}
