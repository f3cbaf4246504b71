package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest},
		{"invalid reference", models.NewInvalidReferenceError("category", "x"), http.StatusBadRequest},
		{"dependents", models.NewDependentsError("category", 2), http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"not found", models.NewNotFoundError("Software", "1"), http.StatusNotFound},
		{"conflict", models.NewConflictError("dup", nil), http.StatusConflict},
		{"upload timeout", models.NewMediaUploadTimeoutError(errors.New("slow")), http.StatusRequestTimeout},
		{"upload failed", models.NewMediaUploadError(errors.New("boom")), http.StatusInternalServerError},
		{"store", models.NewStoreError(errors.New("down")), http.StatusInternalServerError},
		{"plain error", errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestParsePlatforms(t *testing.T) {
	got, err := parsePlatforms([]string{`["Windows","macOS"]`})
	require.NoError(t, err)
	assert.Equal(t, []string{"Windows", "macOS"}, got)

	got, err = parsePlatforms([]string{"Windows", "Linux"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Windows", "Linux"}, got)

	got, err = parsePlatforms([]string{"Linux"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Linux"}, got)

	_, err = parsePlatforms([]string{`["Windows",`})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestParseFormBool(t *testing.T) {
	for raw, want := range map[string]bool{"": false, "false": false, "0": false, "on": true, "true": true, "1": true} {
		got, err := parseFormBool("featured", raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := parseFormBool("featured", "maybe")
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 20)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=500", 100, 0},
		{"?limit=-1&offset=-3", 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var got struct {
				Limit  int `json:"limit"`
				Offset int `json:"offset"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, got.Offset)
		})
	}
}

func TestCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{fiber.StatusBadRequest, models.CodeValidation},
		{fiber.StatusUnauthorized, models.CodeUnauthorized},
		{fiber.StatusNotFound, models.CodeNotFound},
		{fiber.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codeForStatus(tt.status), tt.status)
	}
}
