package service

import (
	"context"

	"catalog/internal/cache"
	"catalog/internal/models"
	"catalog/internal/repository"

	"golang.org/x/sync/errgroup"
)

// CategoryCount is the number of software in one category.
type CategoryCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int64  `json:"count"`
}

// Stats summarises the catalog for the dashboard.
type Stats struct {
	TotalSoftware    int64           `json:"totalSoftware"`
	TotalCategories  int64           `json:"totalCategories"`
	FreeSoftware     int64           `json:"freeSoftware"`
	PaidSoftware     int64           `json:"paidSoftware"`
	FeaturedSoftware int64           `json:"featuredSoftware"`
	ByCategory       []CategoryCount `json:"byCategory"`
}

type StatsService struct {
	software   repository.SoftwareRepository
	categories repository.CategoryRepository
	cache      *cache.Store
}

func NewStatsService(software repository.SoftwareRepository, categories repository.CategoryRepository, store *cache.Store) *StatsService {
	return &StatsService{software: software, categories: categories, cache: store}
}

// Dashboard runs the independent count queries concurrently.
func (s *StatsService) Dashboard(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.cache.Aside(ctx, "stats", cache.StatsKey, &stats, cache.StatsTTL, func() error {
		return s.collect(ctx, &stats)
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return &stats, nil
}

func (s *StatsService) collect(ctx context.Context, out *Stats) error {
	free, paid, featured := true, false, true

	var (
		total, freeCount, paidCount, featuredCount int64
		categories                                 []*models.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = s.software.Count(gctx, repository.SoftwareFilter{})
		return err
	})
	g.Go(func() (err error) {
		freeCount, err = s.software.Count(gctx, repository.SoftwareFilter{Free: &free})
		return err
	})
	g.Go(func() (err error) {
		paidCount, err = s.software.Count(gctx, repository.SoftwareFilter{Free: &paid})
		return err
	})
	g.Go(func() (err error) {
		featuredCount, err = s.software.Count(gctx, repository.SoftwareFilter{Featured: &featured})
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.categories.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	byCategory := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		byCategory = append(byCategory, CategoryCount{ID: c.ID, Name: c.Name, Slug: c.Slug, Count: c.SoftwareCount})
	}
	*out = Stats{
		TotalSoftware:    total,
		TotalCategories:  int64(len(categories)),
		FreeSoftware:     freeCount,
		PaidSoftware:     paidCount,
		FeaturedSoftware: featuredCount,
		ByCategory:       byCategory,
	}
	return nil
}
