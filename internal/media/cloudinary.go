package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"catalog/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var (
	versionedPublicID = regexp.MustCompile(`/upload/v\d+/(.+?)(?:\.[^./]*)?$`)
	plainPublicID     = regexp.MustCompile(`/upload/(.+?)(?:\.[^./]*)?$`)
)

// PublicIDFromURL extracts the Cloudinary public id from a delivery URL,
// with or without a version segment. It returns "" when the URL is not a
// Cloudinary upload URL.
func PublicIDFromURL(url string) string {
	if m := versionedPublicID.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	if m := plainPublicID.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	return ""
}

// TransformationFor renders the bounded-size, auto quality and format chain.
func TransformationFor(req UploadRequest) string {
	quality := req.Quality
	if quality == "" {
		quality = "auto:good"
	}
	return fmt.Sprintf("c_limit,w_%d,h_%d/q_%s/f_auto", req.MaxWidth, req.MaxHeight, quality)
}

// CloudinaryHost stores images in Cloudinary.
type CloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryHost builds a host from CLOUDINARY_URL or the explicit credentials.
func NewCloudinaryHost(cfg *config.Config) (*CloudinaryHost, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.CloudinaryURL != "" {
		cld, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryHost{cld: cld}, nil
}

func (h *CloudinaryHost) Name() string { return "cloudinary" }

func (h *CloudinaryHost) Upload(ctx context.Context, req UploadRequest) (*Asset, error) {
	res, err := h.cld.Upload.Upload(ctx, bytes.NewReader(req.Content), uploader.UploadParams{
		Folder:         req.Folder,
		ResourceType:   "auto",
		Transformation: TransformationFor(req),
	})
	if err != nil {
		if IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrUploadTimeout, err)
		}
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		if strings.Contains(res.Error.Message, "Request Timeout") {
			return nil, fmt.Errorf("%w: %s", ErrUploadTimeout, res.Error.Message)
		}
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return nil, errors.New("cloudinary upload: empty secure url")
	}
	return &Asset{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (h *CloudinaryHost) Delete(ctx context.Context, ref string) (DeleteResult, error) {
	publicID := ref
	if strings.Contains(ref, "://") {
		publicID = PublicIDFromURL(ref)
	}
	if publicID == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownReference, ref)
	}

	res, err := h.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return "", fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	switch res.Result {
	case string(DeleteOK):
		return DeleteOK, nil
	case string(DeleteNotFound):
		return DeleteNotFound, nil
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary destroy %s: %s", publicID, res.Error.Message)
	}
	return "", fmt.Errorf("cloudinary destroy %s: unexpected result %q", publicID, res.Result)
}
