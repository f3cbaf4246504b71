// Package validation holds input rules for catalog records.
package validation

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var versionRule = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// AllowedImageTypes lists accepted image MIME types.
var AllowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/jpg":  {},
	"image/webp": {},
}

func ValidateSoftwareName(name string) error {
	n := len([]rune(strings.TrimSpace(name)))
	if n < 3 {
		return fmt.Errorf("name must be at least 3 characters")
	}
	if n > 100 {
		return fmt.Errorf("name too long")
	}
	return nil
}

func ValidateDescription(desc string) error {
	n := len([]rune(strings.TrimSpace(desc)))
	if n < 10 {
		return fmt.Errorf("description must be at least 10 characters")
	}
	if n > 1000 {
		return fmt.Errorf("description must be less than 1000 characters")
	}
	return nil
}

func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version is required")
	}
	if !versionRule.MatchString(version) {
		return fmt.Errorf("invalid version format (use 1.0.0)")
	}
	return nil
}

func ValidateCategoryRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("please select a category")
	}
	return nil
}

// ParsePrice parses a decimal price string. Negative, NaN and infinite
// values are rejected.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("price is required")
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("price must be a number")
	}
	if price < 0 {
		return 0, fmt.Errorf("price must be a positive number")
	}
	return price, nil
}

// NormalizePlatforms trims entries, drops blanks and duplicates, and
// requires at least one platform to remain.
func NormalizePlatforms(platforms []string) ([]string, error) {
	out := make([]string, 0, len(platforms))
	seen := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("select at least one platform")
	}
	return out, nil
}

// ValidateOptionalURL accepts an empty string or an absolute http(s) URL.
func ValidateOptionalURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("must be a valid URL")
	}
	return nil
}

// ParseTags splits a comma-separated tag string, trimming entries and
// dropping empty ones. An empty input yields an empty, non-nil list.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// DetectImageType sniffs content and checks it against AllowedImageTypes and
// the size ceiling. It returns the detected MIME type.
func DetectImageType(content []byte, maxBytes int64) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("image is empty")
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return "", fmt.Errorf("image must be less than %dMB", maxBytes/(1024*1024))
	}
	mime := http.DetectContentType(content)
	if _, ok := AllowedImageTypes[mime]; !ok {
		return "", fmt.Errorf("only PNG, JPG, or WEBP images are allowed")
	}
	return mime, nil
}
