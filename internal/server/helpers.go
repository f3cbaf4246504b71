package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/valyala/fasthttp"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > service.MaxListLimit {
		limit = service.MaxListLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation, models.CodeInvalidReference, models.CodeHasDependents:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeMediaUploadTimeout:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with its mapped status, logging server-side failures.
func respondError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// errorHandler renders errors raised outside handlers (body limit, unknown
// routes, recovered panics) in the API error shape.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if errors.Is(err, fiber.ErrRequestEntityTooLarge) {
		return respondError(c, models.NewValidationError("Validation failed", models.FieldError{
			Field:   "image",
			Message: fmt.Sprintf("image must be less than %dMB", s.config.ImageMaxUploadSizeMB),
		}))
	}

	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return respondError(c, models.NewInternalError(err))
	}
	if fe.Code >= fiber.StatusInternalServerError {
		return respondError(c, models.NewInternalError(err))
	}
	return models.RespondWithError(c, fe.Code, &models.AppError{Code: codeForStatus(fe.Code), Message: fe.Message})
}

// codeForStatus names a framework status in the error-code vocabulary.
func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return models.CodeValidation
	case fiber.StatusNotFound:
		return models.CodeNotFound
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	}
	return strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(status), " ", "_"))
}

// formValues returns every value submitted for key in a multipart or
// urlencoded body.
func formValues(c *fiber.Ctx, key string) []string {
	if form, err := c.MultipartForm(); err == nil {
		return form.Value[key]
	}
	var out []string
	for _, v := range c.Request().PostArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}

// optionalForm returns a pointer to the first value of key, or nil when the
// field was not submitted.
func optionalForm(c *fiber.Ctx, key string) *string {
	values := formValues(c, key)
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// parsePlatforms accepts a JSON array in a single field or repeated fields.
func parsePlatforms(values []string) ([]string, error) {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var out []string
		if err := json.Unmarshal([]byte(values[0]), &out); err != nil {
			return nil, models.NewValidationError("Validation failed",
				models.FieldError{Field: "platform", Message: "platform must be a JSON array of strings"})
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	return values, nil
}

func parseFormBool(field, raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "off", "no":
		return false, nil
	case "on", "yes":
		return true, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, models.NewValidationError("Validation failed",
			models.FieldError{Field: field, Message: field + " must be true or false"})
	}
	return b, nil
}

// imageFromForm reads the optional "image" file. A missing file yields nil.
func imageFromForm(c *fiber.Ctx) (*service.ImageInput, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil
		}
		return nil, models.NewValidationError("Unable to read uploaded file")
	}

	src, err := file.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}

	return &service.ImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// queryBool reads an optional boolean filter. Absent yields nil.
func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, models.NewValidationError("Validation failed",
			models.FieldError{Field: key, Message: key + " must be true or false"})
	}
	return &b, nil
}
