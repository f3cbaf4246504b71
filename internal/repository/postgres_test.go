package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"catalog/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a Postgres-dialect GORM handle backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return gormDB, mock
}

func TestSoftwareRepository_Postgres_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSoftwareRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "software"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_software_name"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Software{
		Name: "PhotoEdit", Slug: "photoedit", Description: "Edit photos quickly.",
		Version: "1.0", Platform: []string{"Windows"}, CategoryID: "cat-1",
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Postgres_DeleteRestricted(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCategoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "categories" WHERE id = $1`)).
		WithArgs("cat-1").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "fk_software_category"})
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "cat-1")
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Postgres_CountSoftware(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCategoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "software" WHERE category_id = $1`)).
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountSoftware(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftwareRepository_Postgres_JSONContainment(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSoftwareRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "software" WHERE software\.tags @> \$1::jsonb ORDER BY software\.created_at DESC`).
		WithArgs(`["cli"]`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	list, err := repo.List(context.Background(), SoftwareFilter{Tag: "cli"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.False(t, IsNotFound(errors.New("boom")))

	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: software.name")))
	assert.False(t, IsUniqueViolation(nil))

	assert.True(t, IsForeignKeyViolation(gorm.ErrForeignKeyViolated))
	assert.True(t, IsForeignKeyViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsForeignKeyViolation(errors.New("boom")))
}
