package service

import (
	"context"
	"testing"

	"catalog/internal/models"
	"catalog/internal/repository"
	"catalog/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsDashboard(t *testing.T) {
	db := testutil.OpenSQLite(t)
	design := testutil.CreateCategory(t, db, "Design", "design")
	dev := testutil.CreateCategory(t, db, "Development", "development")
	testutil.CreateSoftware(t, db, design.ID, "PhotoEdit")
	testutil.CreateSoftware(t, db, design.ID, "VectorPro", func(s *models.Software) {
		s.Price = 49
		s.Featured = true
	})
	testutil.CreateSoftware(t, db, dev.ID, "CodeForge", func(s *models.Software) { s.Price = 10 })

	svc := NewStatsService(repository.NewSoftwareRepository(db), repository.NewCategoryRepository(db), nil)
	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalSoftware)
	assert.Equal(t, int64(2), stats.TotalCategories)
	assert.Equal(t, int64(1), stats.FreeSoftware)
	assert.Equal(t, int64(2), stats.PaidSoftware)
	assert.Equal(t, int64(1), stats.FeaturedSoftware)

	got := map[string]int64{}
	for _, c := range stats.ByCategory {
		got[c.Slug] = c.Count
	}
	if diff := cmp.Diff(map[string]int64{"design": 2, "development": 1}, got); diff != "" {
		t.Errorf("per-category counts mismatch (-want +got):\n%s", diff)
	}
}
