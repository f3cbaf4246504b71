package server

import (
	"strings"

	"catalog/internal/middleware"
	"catalog/internal/repository"
	"catalog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListSoftware handles GET /api/software
func (s *Server) ListSoftware(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultListLimit)
	featured, err := queryBool(c, "featured")
	if err != nil {
		return respondError(c, err)
	}
	free, err := queryBool(c, "free")
	if err != nil {
		return respondError(c, err)
	}
	list, err := s.catalogService.ListSoftware(c.UserContext(), repository.SoftwareFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Tag:      strings.TrimSpace(c.Query("tag")),
		Platform: strings.TrimSpace(c.Query("platform")),
		Search:   strings.TrimSpace(c.Query("search")),
		Featured: featured,
		Free:     free,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetSoftware handles GET /api/software/:id
func (s *Server) GetSoftware(c *fiber.Ctx) error {
	sw, err := s.catalogService.GetSoftware(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sw)
}

// GetSoftwareBySlug handles GET /api/software/slug/:slug
func (s *Server) GetSoftwareBySlug(c *fiber.Ctx) error {
	sw, err := s.catalogService.GetSoftwareBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sw)
}

// CreateSoftware handles POST /api/software (multipart/form-data)
func (s *Server) CreateSoftware(c *fiber.Ctx) error {
	platforms, err := parsePlatforms(formValues(c, "platform"))
	if err != nil {
		return respondError(c, err)
	}
	featured, err := parseFormBool("featured", c.FormValue("featured"))
	if err != nil {
		return respondError(c, err)
	}
	image, err := imageFromForm(c)
	if err != nil {
		return respondError(c, err)
	}

	sw, err := s.catalogService.CreateSoftware(c.UserContext(), service.CreateSoftwareInput{
		ActorID:     middleware.UserID(c),
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Version:     c.FormValue("version"),
		Category:    c.FormValue("category"),
		Price:       c.FormValue("price"),
		Platform:    platforms,
		Image:       image,
		WebURL:      c.FormValue("webUrl"),
		RepoURL:     c.FormValue("repoUrl"),
		DownloadURL: c.FormValue("downloadUrl"),
		Tags:        c.FormValue("tags"),
		Featured:    featured,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sw)
}

// UpdateSoftware handles PUT /api/software/:id (multipart/form-data).
// Fields that are not submitted keep their stored value.
func (s *Server) UpdateSoftware(c *fiber.Ctx) error {
	in := service.UpdateSoftwareInput{
		ActorID:     middleware.UserID(c),
		ID:          c.Params("id"),
		Name:        optionalForm(c, "name"),
		Description: optionalForm(c, "description"),
		Version:     optionalForm(c, "version"),
		Category:    optionalForm(c, "category"),
		Price:       optionalForm(c, "price"),
		WebURL:      optionalForm(c, "webUrl"),
		RepoURL:     optionalForm(c, "repoUrl"),
		DownloadURL: optionalForm(c, "downloadUrl"),
		Tags:        optionalForm(c, "tags"),
	}

	if values := formValues(c, "platform"); len(values) > 0 {
		platforms, err := parsePlatforms(values)
		if err != nil {
			return respondError(c, err)
		}
		in.Platform = platforms
	}
	if raw := optionalForm(c, "featured"); raw != nil {
		featured, err := parseFormBool("featured", *raw)
		if err != nil {
			return respondError(c, err)
		}
		in.Featured = &featured
	}
	image, err := imageFromForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in.Image = image

	sw, err := s.catalogService.UpdateSoftware(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sw)
}

// DeleteSoftware handles DELETE /api/software/:id
func (s *Server) DeleteSoftware(c *fiber.Ctx) error {
	if err := s.catalogService.DeleteSoftware(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Software deleted successfully"})
}
