package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	SoftwareKeyPrefix = "catalog:software:%s"
	SoftwareListKey   = "catalog:software:list"
	CategoryListKey   = "catalog:categories:list"
	StatsKey          = "catalog:stats"
)

const (
	SoftwareTTL     = 5 * time.Minute
	SoftwareListTTL = 30 * time.Second
	CategoryListTTL = 2 * time.Minute
	StatsTTL        = 30 * time.Second
)

func SoftwareKey(id string) string {
	return fmt.Sprintf(SoftwareKeyPrefix, id)
}

// InvalidateSoftware drops every cached view a software write can change.
func (s *Store) InvalidateSoftware(ctx context.Context, id string) {
	keys := []string{SoftwareListKey, CategoryListKey, StatsKey}
	if id != "" {
		keys = append(keys, SoftwareKey(id))
	}
	s.Invalidate(ctx, keys...)
}

// InvalidateCategories drops cached views a category write can change.
// List entries embed their category, so the software list goes too.
// Per-record entries never carry a category and stay valid.
func (s *Store) InvalidateCategories(ctx context.Context) {
	s.Invalidate(ctx, CategoryListKey, SoftwareListKey, StatsKey)
}
