// Package media stores catalog images on an external media host.
package media

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrUploadTimeout marks an upload that exceeded its deadline.
var ErrUploadTimeout = errors.New("media upload timed out")

// ErrUnknownReference is returned when a URL cannot be mapped to a stored object.
var ErrUnknownReference = errors.New("cannot derive media object from reference")

// UploadRequest describes one image upload with its transformation bounds.
type UploadRequest struct {
	Filename    string
	ContentType string
	Content     []byte
	Folder      string
	MaxWidth    int
	MaxHeight   int
	// Quality is a provider quality hint such as "auto:good" or "80".
	Quality string
}

// Asset is a stored media object.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// DeleteResult reports how a delete resolved. Both values are success.
type DeleteResult string

const (
	DeleteOK       DeleteResult = "ok"
	DeleteNotFound DeleteResult = "not found"
)

// Host uploads and deletes binary objects.
type Host interface {
	Name() string
	Upload(ctx context.Context, req UploadRequest) (*Asset, error)
	// Delete accepts either the public URL or the provider object id.
	Delete(ctx context.Context, ref string) (DeleteResult, error)
}

// IsTimeout reports whether err represents an upload deadline being hit.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUploadTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Request Timeout")
}
