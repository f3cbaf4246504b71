package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"

	"catalog/internal/media"
)

// MediaHostStub is an in-memory media.Host that records every call.
type MediaHostStub struct {
	UploadFn func(context.Context, media.UploadRequest) (*media.Asset, error)
	DeleteFn func(context.Context, string) (media.DeleteResult, error)

	mu      sync.Mutex
	uploads []media.UploadRequest
	deletes []string
	seq     int
}

// NewMediaHostStub returns a stub whose uploads succeed with predictable URLs.
func NewMediaHostStub() *MediaHostStub {
	return &MediaHostStub{}
}

func (s *MediaHostStub) Name() string { return "stub" }

// Upload records req and returns https://media.test/<folder>/img-N.png unless UploadFn is set.
func (s *MediaHostStub) Upload(ctx context.Context, req media.UploadRequest) (*media.Asset, error) {
	s.mu.Lock()
	s.uploads = append(s.uploads, req)
	s.seq++
	n := s.seq
	s.mu.Unlock()

	if s.UploadFn != nil {
		return s.UploadFn(ctx, req)
	}
	id := fmt.Sprintf("%s/img-%d", req.Folder, n)
	return &media.Asset{URL: "https://media.test/" + id + ".png", PublicID: id}, nil
}

// Delete records ref and reports DeleteOK unless DeleteFn is set.
func (s *MediaHostStub) Delete(ctx context.Context, ref string) (media.DeleteResult, error) {
	s.mu.Lock()
	s.deletes = append(s.deletes, ref)
	s.mu.Unlock()

	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, ref)
	}
	return media.DeleteOK, nil
}

// Uploads returns a copy of the recorded upload requests.
func (s *MediaHostStub) Uploads() []media.UploadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.UploadRequest(nil), s.uploads...)
}

// Deletes returns a copy of the recorded delete references.
func (s *MediaHostStub) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

// TinyPNG returns an in-memory PNG with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
