package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonSlugRun       = regexp.MustCompile(`[^a-z0-9]+`)
	categorySlugRule = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Slugify lowercases name, collapses every run of non-alphanumerics into a
// single hyphen and strips leading and trailing hyphens.
func Slugify(name string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// ValidateCategorySlug validates a caller-supplied category slug.
func ValidateCategorySlug(slug string) error {
	if len(slug) < 2 {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > 60 {
		return fmt.Errorf("slug too long")
	}
	if !categorySlugRule.MatchString(slug) {
		return fmt.Errorf("slug must be lowercase with hyphens only")
	}
	return nil
}

// ValidateCategoryName checks the display name length.
func ValidateCategoryName(name string) error {
	n := len([]rune(strings.TrimSpace(name)))
	if n < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if n > 50 {
		return fmt.Errorf("name too long")
	}
	return nil
}
