package validation

import "catalog/internal/models"

// Collector accumulates field-level failures so a request reports every
// invalid field at once.
type Collector struct {
	fields []models.FieldError
}

// Check records err against field when err is non-nil.
func (c *Collector) Check(field string, err error) {
	if err != nil {
		c.fields = append(c.fields, models.FieldError{Field: field, Message: err.Error()})
	}
}

// Err returns a validation AppError listing every recorded field, or nil.
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return models.NewValidationError("Validation failed", c.fields...)
}
