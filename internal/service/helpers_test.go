package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog/internal/models"
	"catalog/internal/repository"
	"catalog/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const actor = "user_2abc"

// softwareRepoStub overrides selected repository calls and delegates the rest.
type softwareRepoStub struct {
	repository.SoftwareRepository
	createFn func(context.Context, *models.Software) error
	updateFn func(context.Context, *models.Software) error
	deleteFn func(context.Context, string) error
}

func (s *softwareRepoStub) Create(ctx context.Context, sw *models.Software) error {
	if s.createFn != nil {
		return s.createFn(ctx, sw)
	}
	return s.SoftwareRepository.Create(ctx, sw)
}

func (s *softwareRepoStub) Update(ctx context.Context, sw *models.Software) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, sw)
	}
	return s.SoftwareRepository.Update(ctx, sw)
}

func (s *softwareRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return s.SoftwareRepository.Delete(ctx, id)
}

type catalogFixture struct {
	db           *gorm.DB
	host         *testutil.MediaHostStub
	softwareRepo *softwareRepoStub
	categories   repository.CategoryRepository
	catalog      *CatalogService
	design       *models.Category
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	db := testutil.OpenSQLite(t)
	f := &catalogFixture{
		db:           db,
		host:         testutil.NewMediaHostStub(),
		softwareRepo: &softwareRepoStub{SoftwareRepository: repository.NewSoftwareRepository(db)},
		categories:   repository.NewCategoryRepository(db),
	}
	f.catalog = NewCatalogService(f.softwareRepo, f.categories, f.host, nil, MediaOptions{
		Folder:        "charlesempire-software-dashboard",
		MaxWidth:      800,
		MaxHeight:     600,
		Quality:       "auto:good",
		UploadTimeout: time.Second,
		MaxImageBytes: 5 << 20,
	})
	f.design = testutil.CreateCategory(t, db, "Design", "design")
	return f
}

func (f *catalogFixture) softwareCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Software{}).Count(&n).Error)
	return n
}

func validCreateInput() CreateSoftwareInput {
	return CreateSoftwareInput{
		ActorID:     actor,
		Name:        "PhotoEdit",
		Description: "Edit photos quickly and well.",
		Version:     "1.0.0",
		Category:    "design",
		Price:       "0",
		Platform:    []string{"Windows"},
	}
}

func withImage(t *testing.T, in CreateSoftwareInput) CreateSoftwareInput {
	in.Image = &ImageInput{Filename: "shot.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 4, 4)}
	return in
}

func strPtr(s string) *string { return &s }

func requireAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}
