package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var demoPlatforms = []string{"Windows", "macOS", "Linux", "Web", "iOS", "Android"}

var demoTags = []string{
	"open-source", "cli", "editor", "productivity", "graphics", "audio",
	"security", "backup", "cloud", "offline", "collaboration", "markdown",
}

// Factory builds demo software records. A fixed seed gives a repeatable catalog.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory returns a Factory; seed 0 picks a random seed.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// BuildSoftware returns an unsaved software record in categoryID.
func (f *Factory) BuildSoftware(categoryID string, overrides ...func(*models.Software)) *models.Software {
	name := f.faker.AppName()
	for len([]rune(name)) < 3 {
		name += " " + f.faker.Noun()
	}

	price := 0.0
	if f.faker.Bool() {
		price = float64(f.faker.Number(1, 99)) + 0.99
	}

	sw := &models.Software{
		Name:        name,
		Slug:        validation.Slugify(name),
		Description: f.faker.Sentence(12),
		Version:     f.faker.AppVersion(),
		Platform:    pick(f.faker, demoPlatforms, 1, 3),
		Price:       price,
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()),
		DownloadURL: "",
		Tags:        pick(f.faker, demoTags, 0, 4),
		Featured:    f.faker.Number(1, 10) == 1,
		CategoryID:  categoryID,
	}
	web := "https://" + strings.ToLower(sw.Slug) + ".example.com"
	sw.WebURL = &web
	for _, o := range overrides {
		o(sw)
	}
	return sw
}

// pick returns between lo and hi distinct values from pool.
func pick(f *gofakeit.Faker, pool []string, lo, hi int) []string {
	n := f.Number(lo, hi)
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(out) < n {
		v := f.RandomString(pool)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Demo inserts count demo software records spread across the existing
// categories. Names that collide with existing rows are skipped.
func Demo(ctx context.Context, db *gorm.DB, f *Factory, count int) (int, error) {
	var categories []models.Category
	if err := db.WithContext(ctx).Order("slug").Find(&categories).Error; err != nil {
		return 0, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) == 0 {
		return 0, errors.New("no categories to attach demo software to; seed categories first")
	}

	created := 0
	for i := 0; i < count; i++ {
		sw := f.BuildSoftware(categories[i%len(categories)].ID)
		err := db.WithContext(ctx).Omit("Category").Create(sw).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			middleware.Logger.DebugContext(ctx, "skipping duplicate demo software")
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create demo software: %w", err)
		}
		created++
	}
	return created, nil
}
