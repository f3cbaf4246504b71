// Package repository provides data access for catalog records.
package repository

import (
	"context"
	"encoding/json"
	"strings"

	"catalog/internal/models"

	"gorm.io/gorm"
)

// SoftwareFilter narrows software listings. Zero values mean "no filter".
type SoftwareFilter struct {
	// Category matches either the category id or its slug.
	Category string
	Tag      string
	Platform string
	// Search matches name or description, case-insensitively.
	Search   string
	Featured *bool
	Free     *bool
	Limit    int
	Offset   int
}

// IsZero reports whether the filter selects the default unfiltered first page.
func (f SoftwareFilter) IsZero() bool {
	return f.Category == "" && f.Tag == "" && f.Platform == "" && f.Search == "" &&
		f.Featured == nil && f.Free == nil && f.Offset == 0
}

// SoftwareRepository defines the interface for software data operations
type SoftwareRepository interface {
	Create(ctx context.Context, software *models.Software) error
	GetByID(ctx context.Context, id string) (*models.Software, error)
	GetBySlug(ctx context.Context, slug string) (*models.Software, error)
	List(ctx context.Context, filter SoftwareFilter) ([]*models.Software, error)
	Count(ctx context.Context, filter SoftwareFilter) (int64, error)
	Update(ctx context.Context, software *models.Software) error
	Delete(ctx context.Context, id string) error
}

type softwareRepository struct {
	db *gorm.DB
}

// NewSoftwareRepository creates a new software repository
func NewSoftwareRepository(db *gorm.DB) SoftwareRepository {
	return &softwareRepository{db: db}
}

func (r *softwareRepository) Create(ctx context.Context, software *models.Software) error {
	return r.db.WithContext(ctx).Omit("Category").Create(software).Error
}

func (r *softwareRepository) GetByID(ctx context.Context, id string) (*models.Software, error) {
	var software models.Software
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", id).
		First(&software).Error
	if err != nil {
		return nil, err
	}
	return &software, nil
}

func (r *softwareRepository) GetBySlug(ctx context.Context, slug string) (*models.Software, error) {
	var software models.Software
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("slug = ?", slug).
		First(&software).Error
	if err != nil {
		return nil, err
	}
	return &software, nil
}

func (r *softwareRepository) List(ctx context.Context, filter SoftwareFilter) ([]*models.Software, error) {
	var list []*models.Software
	q := r.applyFilter(r.db.WithContext(ctx).Model(&models.Software{}), filter).
		Preload("Category").
		Order("software.created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *softwareRepository) Count(ctx context.Context, filter SoftwareFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.Software{}), filter).
		Count(&count).Error
	return count, err
}

// Update writes every column of software. It returns gorm.ErrRecordNotFound
// when no row has the id.
func (r *softwareRepository) Update(ctx context.Context, software *models.Software) error {
	result := r.db.WithContext(ctx).
		Model(&models.Software{ID: software.ID}).
		Select("*").
		Omit("ID", "CreatedAt", "Category").
		Updates(software)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the row. It returns gorm.ErrRecordNotFound when nothing was deleted.
func (r *softwareRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Software{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *softwareRepository) applyFilter(q *gorm.DB, f SoftwareFilter) *gorm.DB {
	if f.Category != "" {
		q = q.Where("software.category_id IN (?)",
			r.db.Model(&models.Category{}).Select("id").Where("id = ? OR slug = ?", f.Category, f.Category))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(f.Search)) + "%"
		q = q.Where("(LOWER(software.name) LIKE ? OR LOWER(software.description) LIKE ?)", like, like)
	}
	if f.Tag != "" {
		q = r.whereJSONArrayContains(q, "software.tags", f.Tag)
	}
	if f.Platform != "" {
		q = r.whereJSONArrayContains(q, "software.platform", f.Platform)
	}
	if f.Featured != nil {
		q = q.Where("software.featured = ?", *f.Featured)
	}
	if f.Free != nil {
		if *f.Free {
			q = q.Where("software.price = 0")
		} else {
			q = q.Where("software.price > 0")
		}
	}
	return q
}

// whereJSONArrayContains matches rows whose JSON string array column holds value.
func (r *softwareRepository) whereJSONArrayContains(q *gorm.DB, column, value string) *gorm.DB {
	switch r.db.Dialector.Name() {
	case "postgres":
		needle, _ := json.Marshal([]string{value})
		return q.Where(column+" @> ?::jsonb", string(needle))
	default:
		return q.Where("EXISTS (SELECT 1 FROM json_each("+column+") WHERE json_each.value = ?)", value)
	}
}
