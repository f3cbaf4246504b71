// Package service implements the catalog workflows on top of the store and
// the media host.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/media"
	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/observability"
	"catalog/internal/repository"
	"catalog/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	defaultUploadTimeout = 60 * time.Second
	cleanupTimeout       = 15 * time.Second
)

// Media delete reasons, used as metric labels.
const (
	deleteReasonRollback = "rollback"
	deleteReasonReplace  = "replace"
	deleteReasonRemove   = "remove"
)

const msgUnauthorized = "Unauthorized! Please login to perform this action."

// MediaOptions bounds every upload the workflow issues.
type MediaOptions struct {
	Folder        string
	MaxWidth      int
	MaxHeight     int
	Quality       string
	UploadTimeout time.Duration
	MaxImageBytes int64
}

// MediaOptionsFromConfig reads the MEDIA_* and IMAGE_* settings.
func MediaOptionsFromConfig(cfg *config.Config) MediaOptions {
	return MediaOptions{
		Folder:        cfg.MediaFolder,
		MaxWidth:      cfg.MediaMaxWidth,
		MaxHeight:     cfg.MediaMaxHeight,
		Quality:       cfg.MediaQuality,
		UploadTimeout: cfg.MediaUploadTimeout(),
		MaxImageBytes: cfg.ImageMaxUploadBytes(),
	}
}

// ImageInput is an uploaded image file.
type ImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

type CreateSoftwareInput struct {
	ActorID     string
	Name        string
	Description string
	Version     string
	// Category is the category id or slug.
	Category    string
	Price       string
	Platform    []string
	Image       *ImageInput
	WebURL      string
	RepoURL     string
	DownloadURL string
	// Tags is a comma-separated list.
	Tags     string
	Featured bool
}

// UpdateSoftwareInput carries the fields to change. Nil means keep the
// current value; a non-nil empty Tags clears the tags.
type UpdateSoftwareInput struct {
	ActorID     string
	ID          string
	Name        *string
	Description *string
	Version     *string
	Category    *string
	Price       *string
	Platform    []string
	Image       *ImageInput
	WebURL      *string
	RepoURL     *string
	DownloadURL *string
	Tags        *string
	Featured    *bool
}

// SoftwareList is one page of software.
type SoftwareList struct {
	Items  []*models.Software `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type CatalogService struct {
	software   repository.SoftwareRepository
	categories repository.CategoryRepository
	media      media.Host
	cache      *cache.Store
	opts       MediaOptions
}

func NewCatalogService(
	software repository.SoftwareRepository,
	categories repository.CategoryRepository,
	host media.Host,
	store *cache.Store,
	opts MediaOptions,
) *CatalogService {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	return &CatalogService{
		software:   software,
		categories: categories,
		media:      host,
		cache:      store,
		opts:       opts,
	}
}

// CreateSoftware validates the input, uploads the optional image, resolves
// the category and stores the record. Any failure after the upload deletes
// the uploaded image before the error is returned.
func (s *CatalogService) CreateSoftware(ctx context.Context, in CreateSoftwareInput) (sw *models.Software, err error) {
	span, ctx := observability.NewSpan(ctx, "catalog.create")
	defer func() {
		observability.ObserveWrite("software", "create", err)
		span.End(err)
	}()

	if in.ActorID == "" {
		return nil, models.NewUnauthorizedError(msgUnauthorized)
	}

	var v validation.Collector
	name := strings.TrimSpace(in.Name)
	v.Check("name", validation.ValidateSoftwareName(name))
	if validation.ValidateSoftwareName(name) == nil && validation.Slugify(name) == "" {
		v.Check("name", errors.New("name must contain letters or numbers"))
	}
	v.Check("description", validation.ValidateDescription(in.Description))
	v.Check("version", validation.ValidateVersion(strings.TrimSpace(in.Version)))
	v.Check("category", validation.ValidateCategoryRef(in.Category))
	price, perr := validation.ParsePrice(in.Price)
	v.Check("price", perr)
	platforms, plErr := validation.NormalizePlatforms(in.Platform)
	v.Check("platform", plErr)
	v.Check("webUrl", validation.ValidateOptionalURL(in.WebURL))
	v.Check("repoUrl", validation.ValidateOptionalURL(in.RepoURL))
	v.Check("downloadUrl", validation.ValidateOptionalURL(in.DownloadURL))
	if in.Image != nil {
		_, imgErr := validation.DetectImageType(in.Image.Content, s.opts.MaxImageBytes)
		v.Check("image", imgErr)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var asset *media.Asset
	if in.Image != nil {
		if asset, err = s.uploadImage(ctx, in.Image); err != nil {
			return nil, err
		}
	}
	rollback := func() {
		if asset != nil {
			s.discardImage(ctx, asset.URL, deleteReasonRollback)
		}
	}

	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		rollback()
		return nil, err
	}

	sw = &models.Software{
		Name:        name,
		Slug:        validation.Slugify(name),
		Description: strings.TrimSpace(in.Description),
		Version:     strings.TrimSpace(in.Version),
		Platform:    platforms,
		Price:       price,
		DownloadURL: strings.TrimSpace(in.DownloadURL),
		WebURL:      optionalURL(in.WebURL),
		RepoURL:     optionalURL(in.RepoURL),
		Tags:        validation.ParseTags(in.Tags),
		Featured:    in.Featured,
		CategoryID:  category.ID,
	}
	if asset != nil {
		sw.ImageURL = asset.URL
	}

	if err := s.software.Create(ctx, sw); err != nil {
		rollback()
		return nil, softwareWriteError(err, in.Category)
	}

	sw.Category = category
	s.cache.InvalidateSoftware(ctx, sw.ID)
	middleware.Logger.InfoContext(ctx, "software created",
		slog.String("software_id", sw.ID), slog.String("slug", sw.Slug), slog.Bool("has_image", sw.ImageURL != ""))
	return sw, nil
}

// UpdateSoftware merges the supplied fields into the stored record. A new
// image is uploaded before the write; the previous image is deleted only
// after the write commits, and the new one is deleted if the write fails.
func (s *CatalogService) UpdateSoftware(ctx context.Context, in UpdateSoftwareInput) (sw *models.Software, err error) {
	span, ctx := observability.NewSpan(ctx, "catalog.update", attribute.String("software.id", in.ID))
	defer func() {
		observability.ObserveWrite("software", "update", err)
		span.End(err)
	}()

	if in.ActorID == "" {
		return nil, models.NewUnauthorizedError(msgUnauthorized)
	}

	var (
		v         validation.Collector
		price     float64
		platforms []string
	)
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		v.Check("name", validation.ValidateSoftwareName(name))
		if validation.ValidateSoftwareName(name) == nil && validation.Slugify(name) == "" {
			v.Check("name", errors.New("name must contain letters or numbers"))
		}
	}
	if in.Description != nil {
		v.Check("description", validation.ValidateDescription(*in.Description))
	}
	if in.Version != nil {
		v.Check("version", validation.ValidateVersion(strings.TrimSpace(*in.Version)))
	}
	if in.Category != nil {
		v.Check("category", validation.ValidateCategoryRef(*in.Category))
	}
	if in.Price != nil {
		var perr error
		price, perr = validation.ParsePrice(*in.Price)
		v.Check("price", perr)
	}
	if in.Platform != nil {
		var plErr error
		platforms, plErr = validation.NormalizePlatforms(in.Platform)
		v.Check("platform", plErr)
	}
	if in.WebURL != nil {
		v.Check("webUrl", validation.ValidateOptionalURL(*in.WebURL))
	}
	if in.RepoURL != nil {
		v.Check("repoUrl", validation.ValidateOptionalURL(*in.RepoURL))
	}
	if in.DownloadURL != nil {
		v.Check("downloadUrl", validation.ValidateOptionalURL(*in.DownloadURL))
	}
	if in.Image != nil {
		_, imgErr := validation.DetectImageType(in.Image.Content, s.opts.MaxImageBytes)
		v.Check("image", imgErr)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	existing, err := s.software.GetByID(ctx, in.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Software", in.ID)
		}
		return nil, models.NewStoreError(err)
	}

	category := existing.Category
	if in.Category != nil {
		if category, err = s.resolveCategory(ctx, *in.Category); err != nil {
			return nil, err
		}
	}

	var asset *media.Asset
	if in.Image != nil {
		if asset, err = s.uploadImage(ctx, in.Image); err != nil {
			return nil, err
		}
	}

	previousImage := existing.ImageURL
	merged := *existing
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != existing.Name {
			merged.Name = name
			merged.Slug = validation.Slugify(name)
		}
	}
	if in.Description != nil {
		merged.Description = strings.TrimSpace(*in.Description)
	}
	if in.Version != nil {
		merged.Version = strings.TrimSpace(*in.Version)
	}
	if category != nil {
		merged.CategoryID = category.ID
	}
	if in.Price != nil {
		merged.Price = price
	}
	if in.Platform != nil {
		merged.Platform = platforms
	}
	if in.WebURL != nil {
		merged.WebURL = optionalURL(*in.WebURL)
	}
	if in.RepoURL != nil {
		merged.RepoURL = optionalURL(*in.RepoURL)
	}
	if in.DownloadURL != nil {
		merged.DownloadURL = strings.TrimSpace(*in.DownloadURL)
	}
	if in.Tags != nil {
		merged.Tags = validation.ParseTags(*in.Tags)
	}
	if in.Featured != nil {
		merged.Featured = *in.Featured
	}
	if asset != nil {
		merged.ImageURL = asset.URL
	}
	merged.Category = nil

	if err := s.software.Update(ctx, &merged); err != nil {
		if asset != nil {
			s.discardImage(ctx, asset.URL, deleteReasonRollback)
		}
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Software", in.ID)
		}
		ref := merged.CategoryID
		if in.Category != nil {
			ref = *in.Category
		}
		return nil, softwareWriteError(err, ref)
	}

	if asset != nil && previousImage != "" && previousImage != asset.URL {
		s.discardImage(ctx, previousImage, deleteReasonReplace)
	}

	merged.Category = category
	s.cache.InvalidateSoftware(ctx, merged.ID)
	middleware.Logger.InfoContext(ctx, "software updated",
		slog.String("software_id", merged.ID), slog.Bool("image_replaced", asset != nil))
	return &merged, nil
}

// DeleteSoftware removes the record's image, best-effort, then the record.
// The record is deleted even when the image delete fails.
func (s *CatalogService) DeleteSoftware(ctx context.Context, actorID, id string) (err error) {
	span, ctx := observability.NewSpan(ctx, "catalog.delete", attribute.String("software.id", id))
	defer func() {
		observability.ObserveWrite("software", "delete", err)
		span.End(err)
	}()

	if actorID == "" {
		return models.NewUnauthorizedError(msgUnauthorized)
	}

	existing, err := s.software.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.NewNotFoundError("Software", id)
		}
		return models.NewStoreError(err)
	}

	s.discardImage(ctx, existing.ImageURL, deleteReasonRemove)

	if err := s.software.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return models.NewNotFoundError("Software", id)
		}
		return models.NewStoreError(err)
	}

	s.cache.InvalidateSoftware(ctx, id)
	middleware.Logger.InfoContext(ctx, "software deleted", slog.String("software_id", id))
	return nil
}

// GetSoftware returns one record with its category. The cached entry holds
// the record only; the category is read fresh so renames show up at once.
func (s *CatalogService) GetSoftware(ctx context.Context, id string) (*models.Software, error) {
	var (
		sw       models.Software
		category *models.Category
	)
	err := s.cache.Aside(ctx, "software", cache.SoftwareKey(id), &sw, cache.SoftwareTTL, func() error {
		found, err := s.software.GetByID(ctx, id)
		if err != nil {
			return err
		}
		sw = *found
		category, sw.Category = found.Category, nil
		return nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Software", id)
		}
		return nil, models.NewStoreError(err)
	}

	if category == nil && sw.CategoryID != "" {
		category, err = s.categories.GetByID(ctx, sw.CategoryID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, models.NewStoreError(err)
		}
	}
	sw.Category = category
	return &sw, nil
}

func (s *CatalogService) GetSoftwareBySlug(ctx context.Context, slug string) (*models.Software, error) {
	sw, err := s.software.GetBySlug(ctx, slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Software", slug)
		}
		return nil, models.NewStoreError(err)
	}
	return sw, nil
}

// ListSoftware returns one page of software, newest first. The default
// unfiltered first page is served from cache.
func (s *CatalogService) ListSoftware(ctx context.Context, filter repository.SoftwareFilter) (*SoftwareList, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	fetch := func(out *SoftwareList) error {
		items, err := s.software.List(ctx, filter)
		if err != nil {
			return err
		}
		total, err := s.software.Count(ctx, filter)
		if err != nil {
			return err
		}
		*out = SoftwareList{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}
		return nil
	}

	var list SoftwareList
	var err error
	if filter.IsZero() && filter.Limit == DefaultListLimit {
		err = s.cache.Aside(ctx, "software_list", cache.SoftwareListKey, &list, cache.SoftwareListTTL, func() error {
			return fetch(&list)
		})
	} else {
		err = fetch(&list)
	}
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	if list.Items == nil {
		list.Items = []*models.Software{}
	}
	return &list, nil
}

func (s *CatalogService) resolveCategory(ctx context.Context, ref string) (*models.Category, error) {
	ref = strings.TrimSpace(ref)
	category, err := s.categories.Resolve(ctx, ref)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewInvalidReferenceError("Category", ref)
		}
		return nil, models.NewStoreError(err)
	}
	return category, nil
}

func (s *CatalogService) uploadImage(ctx context.Context, img *ImageInput) (*media.Asset, error) {
	host := s.media.Name()
	span, ctx := observability.NewSpan(ctx, "media.upload", attribute.String("media.host", host))
	ctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()

	start := time.Now()
	asset, err := s.media.Upload(ctx, media.UploadRequest{
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Content:     img.Content,
		Folder:      s.opts.Folder,
		MaxWidth:    s.opts.MaxWidth,
		MaxHeight:   s.opts.MaxHeight,
		Quality:     s.opts.Quality,
	})
	if err == nil && (asset == nil || asset.URL == "") {
		err = errors.New("media host returned no url")
	}

	var appErr error
	switch {
	case err == nil:
		observability.ObserveUpload(host, observability.OutcomeOK, start)
	case media.IsTimeout(err):
		observability.ObserveUpload(host, observability.OutcomeTimeout, start)
		appErr = models.NewMediaUploadTimeoutError(err)
	default:
		observability.ObserveUpload(host, observability.OutcomeFailed, start)
		appErr = models.NewMediaUploadError(err)
	}
	span.End(err)
	if appErr != nil {
		middleware.Logger.WarnContext(ctx, "image upload failed",
			slog.String("host", host), slog.String("error", err.Error()))
		return nil, appErr
	}
	return asset, nil
}

// discardImage deletes ref from the media host. Failures are logged and
// counted, never returned. The delete runs even if ctx was cancelled.
func (s *CatalogService) discardImage(ctx context.Context, ref, reason string) {
	if ref == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	span, ctx := observability.NewSpan(ctx, "media.delete", attribute.String("media.reason", reason))
	res, err := s.media.Delete(ctx, ref)
	span.End(err)

	if err != nil {
		observability.ObserveMediaDelete(reason, observability.OutcomeFailed)
		middleware.Logger.ErrorContext(ctx, "image delete failed",
			slog.String("reason", reason), slog.String("url", ref), slog.String("error", err.Error()))
		return
	}
	outcome := observability.OutcomeOK
	if res == media.DeleteNotFound {
		outcome = observability.OutcomeNotFound
	}
	observability.ObserveMediaDelete(reason, outcome)
	middleware.Logger.InfoContext(ctx, "image deleted",
		slog.String("reason", reason), slog.String("url", ref), slog.String("result", string(res)))
}

func softwareWriteError(err error, categoryRef string) error {
	switch {
	case repository.IsUniqueViolation(err):
		return models.NewConflictError("Software with this name already exists", err)
	case repository.IsForeignKeyViolation(err):
		return models.NewInvalidReferenceError("Category", categoryRef)
	default:
		return models.NewStoreError(err)
	}
}

func optionalURL(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
