package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// LocalHost stores images on disk and serves them from BaseURL. It applies
// the same bounded resize and automatic format choice as the hosted CDN.
type LocalHost struct {
	Dir     string
	BaseURL string
}

// NewLocalHost creates a host writing under dir and publishing under baseURL.
func NewLocalHost(dir, baseURL string) (*LocalHost, error) {
	if dir == "" {
		return nil, errors.New("local media dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalHost{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (h *LocalHost) Name() string { return "local" }

func (h *LocalHost) Upload(ctx context.Context, req UploadRequest) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrUploadTimeout
		}
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(req.Content))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	maxW, maxH := req.MaxWidth, req.MaxHeight
	if maxW <= 0 {
		maxW = src.Bounds().Dx()
	}
	if maxH <= 0 {
		maxH = src.Bounds().Dy()
	}
	resized := resizeToFit(src, maxW, maxH)

	quality := qualityFor(req.Quality)
	var (
		data []byte
		ext  string
	)
	if hasTransparency(resized) {
		data, err = encodeWebP(resized, quality)
		ext = ".webp"
	} else {
		data, err = encodeJPEG(resized, quality)
		ext = ".jpg"
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	publicID := path.Join(sanitizeFolder(req.Folder), uuid.NewString())
	if err := writeBytesToFile(h.filePath(publicID+ext), data); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(h.filePath(publicID + ext))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrUploadTimeout
		}
		return nil, err
	}

	return &Asset{URL: h.BaseURL + "/" + publicID + ext, PublicID: publicID}, nil
}

func (h *LocalHost) Delete(_ context.Context, ref string) (DeleteResult, error) {
	publicID := h.publicIDFrom(ref)
	if publicID == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownReference, ref)
	}

	matches, err := filepath.Glob(h.filePath(publicID) + ".*")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return DeleteNotFound, nil
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return DeleteOK, nil
}

// publicIDFrom maps a served URL or a bare public id to the public id.
// References that escape the media dir yield "".
func (h *LocalHost) publicIDFrom(ref string) string {
	id := ref
	if h.BaseURL != "" && strings.HasPrefix(ref, h.BaseURL+"/") {
		id = strings.TrimPrefix(ref, h.BaseURL+"/")
	} else if strings.Contains(ref, "://") || strings.HasPrefix(ref, "/") {
		return ""
	}
	id = strings.TrimSuffix(id, path.Ext(id))
	clean := path.Clean(id)
	if clean == "." || strings.HasPrefix(clean, "..") || strings.HasPrefix(clean, "/") {
		return ""
	}
	return clean
}

func (h *LocalHost) filePath(rel string) string {
	return filepath.Join(h.Dir, filepath.FromSlash(rel))
}

func sanitizeFolder(folder string) string {
	clean := path.Clean("/" + folder)
	return strings.TrimPrefix(clean, "/")
}

// qualityFor maps provider quality hints to an encoder quality.
func qualityFor(hint string) int {
	switch hint {
	case "auto:best":
		return 90
	case "auto:eco":
		return 70
	case "auto:low":
		return 60
	case "", "auto", "auto:good":
		return 82
	}
	if q, err := strconv.Atoi(hint); err == nil && q > 0 && q <= 100 {
		return q
	}
	return 82
}

func hasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
