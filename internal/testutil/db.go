// Package testutil provides shared test doubles and fixtures for catalog tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"catalog/internal/database"
	"catalog/internal/models"
	"catalog/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSQLite returns an isolated in-memory database with the catalog schema.
// Foreign keys are enforced so RESTRICT behaves as it does on Postgres.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// CreateCategory inserts a category directly.
func CreateCategory(t testing.TB, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug}
	if err := db.WithContext(context.Background()).Create(c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// CreateSoftware inserts a software row for categoryID with sensible defaults.
// Rows are spaced one second apart so created_at ordering is deterministic.
func CreateSoftware(t testing.TB, db *gorm.DB, categoryID, name string, mutate ...func(*models.Software)) *models.Software {
	t.Helper()
	var count int64
	db.Model(&models.Software{}).Count(&count)

	s := &models.Software{
		Name:        name,
		Slug:        validation.Slugify(name),
		Description: "A dependable tool for " + name + " workflows.",
		Version:     "1.0.0",
		Platform:    []string{"Windows"},
		Tags:        []string{},
		CategoryID:  categoryID,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, int(count), 0, time.UTC),
	}
	for _, m := range mutate {
		m(s)
	}
	if err := db.Omit("Category").Create(s).Error; err != nil {
		t.Fatalf("create software: %v", err)
	}
	return s
}

// SignToken issues an HS256 session token for sub.
func SignToken(t testing.TB, secret, sub string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
