package service

import (
	"context"
	"log/slog"
	"strings"

	"catalog/internal/cache"
	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/observability"
	"catalog/internal/repository"
	"catalog/internal/validation"
)

type CategoryService struct {
	categories repository.CategoryRepository
	cache      *cache.Store
}

type CreateCategoryInput struct {
	ActorID string
	Name    string
	// Slug is optional; it is derived from Name when empty.
	Slug string
}

type UpdateCategoryInput struct {
	ActorID string
	ID      string
	Name    *string
	Slug    *string
}

func NewCategoryService(categories repository.CategoryRepository, store *cache.Store) *CategoryService {
	return &CategoryService{categories: categories, cache: store}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var list []*models.Category
	err := s.cache.Aside(ctx, "category_list", cache.CategoryListKey, &list, cache.CategoryListTTL, func() error {
		var err error
		list, err = s.categories.List(ctx)
		return err
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	if list == nil {
		list = []*models.Category{}
	}
	return list, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Category", id)
		}
		return nil, models.NewStoreError(err)
	}
	return category, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, in CreateCategoryInput) (category *models.Category, err error) {
	defer func() { observability.ObserveWrite("category", "create", err) }()

	if in.ActorID == "" {
		return nil, models.NewUnauthorizedError(msgUnauthorized)
	}

	name := strings.TrimSpace(in.Name)
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = validation.Slugify(name)
	}

	var v validation.Collector
	v.Check("name", validation.ValidateCategoryName(name))
	v.Check("slug", validation.ValidateCategorySlug(slug))
	if err := v.Err(); err != nil {
		return nil, err
	}

	category = &models.Category{Name: name, Slug: slug}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, categoryWriteError(err)
	}

	s.cache.InvalidateCategories(ctx)
	middleware.Logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID), slog.String("slug", category.Slug))
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, in UpdateCategoryInput) (category *models.Category, err error) {
	defer func() { observability.ObserveWrite("category", "update", err) }()

	if in.ActorID == "" {
		return nil, models.NewUnauthorizedError(msgUnauthorized)
	}

	var v validation.Collector
	if in.Name != nil {
		v.Check("name", validation.ValidateCategoryName(strings.TrimSpace(*in.Name)))
	}
	if in.Slug != nil {
		v.Check("slug", validation.ValidateCategorySlug(strings.TrimSpace(*in.Slug)))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	category, err = s.categories.GetByID(ctx, in.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Category", in.ID)
		}
		return nil, models.NewStoreError(err)
	}

	if in.Name != nil {
		category.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		category.Slug = strings.TrimSpace(*in.Slug)
	}

	if err := s.categories.Update(ctx, category); err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Category", in.ID)
		}
		return nil, categoryWriteError(err)
	}

	s.cache.InvalidateCategories(ctx)
	return category, nil
}

// DeleteCategory removes a category that no software references. A category
// with dependents is rejected with the dependent count.
func (s *CategoryService) DeleteCategory(ctx context.Context, actorID, id string) (err error) {
	defer func() { observability.ObserveWrite("category", "delete", err) }()

	if actorID == "" {
		return models.NewUnauthorizedError(msgUnauthorized)
	}

	if _, err := s.categories.GetByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return models.NewNotFoundError("Category", id)
		}
		return models.NewStoreError(err)
	}

	count, err := s.categories.CountSoftware(ctx, id)
	if err != nil {
		return models.NewStoreError(err)
	}
	if count > 0 {
		return models.NewDependentsError("category", count)
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		switch {
		case repository.IsNotFound(err):
			return models.NewNotFoundError("Category", id)
		case repository.IsForeignKeyViolation(err):
			// Software was attached after the count.
			if n, cerr := s.categories.CountSoftware(ctx, id); cerr == nil && n > 0 {
				return models.NewDependentsError("category", n)
			}
			return models.NewDependentsError("category", 1)
		default:
			return models.NewStoreError(err)
		}
	}

	s.cache.InvalidateCategories(ctx)
	middleware.Logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

func categoryWriteError(err error) error {
	if repository.IsUniqueViolation(err) {
		return models.NewConflictError("Category with this slug already exists", err)
	}
	return models.NewStoreError(err)
}
