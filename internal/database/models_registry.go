package database

import "catalog/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Categories come first so the software foreign key can be created.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Category{},
		&models.Software{},
	}
}
