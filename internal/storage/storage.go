// Package storage keeps uploaded files (profile photos, product images,
// message attachments) under keys scoped to the uploading user.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
)

// Kind groups uploads and decides which file types are allowed
type Kind string

const (
	KindProfilePhoto Kind = "profile"
	KindProductImage Kind = "products"
	KindAttachment   Kind = "attachments"
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

var allowedExtensions = map[Kind]map[string]bool{
	KindProfilePhoto: imageExtensions,
	KindProductImage: imageExtensions,
	KindAttachment:   {".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true},
}

// Backend stores opaque blobs by key
type Backend interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Close(ctx context.Context) error
}

// Object is a stored upload
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type Service struct {
	backend       Backend
	publicBaseURL string
	maxBytes      int64
}

func NewService(backend Backend, publicBaseURL string, maxUploadMB int) *Service {
	return &Service{
		backend:       backend,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxBytes:      int64(maxUploadMB) << 20,
	}
}

// BuildKey names a new object owned by ownerID: <owner>/<kind>/<random><ext>
func BuildKey(ownerID uuid.UUID, kind Kind, ext string) string {
	return path.Join(ownerID.String(), string(kind), uuid.NewString()+strings.ToLower(ext))
}

// ParseKey validates a key and returns its owner and kind
func ParseKey(key string) (uuid.UUID, Kind, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || path.Clean(key) != key {
		return uuid.Nil, "", apperr.Validation("invalid storage key")
	}
	owner, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", apperr.Validation("invalid storage key")
	}
	kind := Kind(parts[1])
	if _, ok := allowedExtensions[kind]; !ok {
		return uuid.Nil, "", apperr.Validation("invalid storage key")
	}
	name := parts[2]
	if _, err := uuid.Parse(strings.TrimSuffix(name, filepath.Ext(name))); err != nil {
		return uuid.Nil, "", apperr.Validation("invalid storage key")
	}
	return owner, kind, nil
}

// ValidateUpload checks that a file of this name and size may be stored as kind
func (s *Service) ValidateUpload(kind Kind, filename string, size int64) (string, error) {
	allowed, ok := allowedExtensions[kind]
	if !ok {
		return "", apperr.Validation("unknown upload kind %q", kind)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowed[ext] {
		return "", apperr.Validation("file type %q is not allowed", ext)
	}
	if size <= 0 {
		return "", apperr.Validation("file is empty")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", apperr.Validation("file is larger than %d MB", s.maxBytes>>20)
	}
	return ext, nil
}

// Upload stores r under a fresh key in ownerID's space and returns its public URL
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, kind Kind, filename string, size int64, r io.Reader) (*Object, error) {
	ext, err := s.ValidateUpload(kind, filename, size)
	if err != nil {
		return nil, err
	}

	key := BuildKey(ownerID, kind, ext)
	contentType := ContentType(key)
	if err := s.backend.Save(ctx, key, io.LimitReader(r, size), contentType); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}
	util.UploadsTotal.WithLabelValues(string(kind)).Inc()

	return &Object{Key: key, URL: s.URL(key), ContentType: contentType}, nil
}

// Open returns the content of key
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if _, _, err := ParseKey(key); err != nil {
		return nil, "", err
	}
	rc, err := s.backend.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, ContentType(key), nil
}

// URL is the public address of key
func (s *Service) URL(key string) string {
	return s.publicBaseURL + "/" + key
}

// ContentType guesses the MIME type from the key's extension
func ContentType(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Close releases the backend
func (s *Service) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}
