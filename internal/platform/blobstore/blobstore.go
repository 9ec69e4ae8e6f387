// Package blobstore stores uploaded files (doctor credentials, patient
// records) under flat, server-generated names and validates uploads against
// the configured size cap and extension allowlist.
package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrBlobNotFound       = errors.New("File not found")
	ErrFileTooLarge       = errors.New("File too large")
	ErrFileTypeNotAllowed = errors.New("File type not allowed")
	ErrInvalidName        = errors.New("invalid file name")
)

// ---------------------------------------------------------------------------
// Upload policy
// ---------------------------------------------------------------------------

// Policy is the upload size cap and extension allowlist.
type Policy struct {
	MaxSize           int64
	AllowedExtensions []string
}

// Check validates an upload by its original file name and declared size and
// returns the normalised extension (lowercase, no dot).
func (p Policy) Check(fileName string, size int64) (string, error) {
	if p.MaxSize > 0 && size > p.MaxSize {
		return "", ErrFileTooLarge
	}
	ext := Extension(fileName)
	if ext == "" {
		return "", ErrFileTypeNotAllowed
	}
	for _, allowed := range p.AllowedExtensions {
		if ext == strings.ToLower(strings.TrimPrefix(allowed, ".")) {
			return ext, nil
		}
	}
	return "", ErrFileTypeNotAllowed
}

// Extension returns the lowercase extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ValidName reports whether name is a flat file name with no directory parts.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return path.Base(name) == name
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// BlobMetadata describes a stored blob.
type BlobMetadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlobStore defines the contract for blob storage backends.
type BlobStore interface {
	Put(ctx context.Context, name string, content io.Reader) (*BlobMetadata, error)
	Open(ctx context.Context, name string) (io.ReadCloser, *BlobMetadata, error)
	Stat(ctx context.Context, name string) (*BlobMetadata, error)
	Delete(ctx context.Context, name string) error
}

// FSStore keeps blobs as files on an afero filesystem. Writes go to a temp
// file and are renamed into place so readers never see partial content.
type FSStore struct {
	fs      afero.Fs
	maxSize int64
}

// NewLocalStore stores blobs under dir on the OS filesystem, creating it if
// needed. maxSize <= 0 disables the store-level size check.
func NewLocalStore(dir string, maxSize int64) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FSStore{fs: afero.NewBasePathFs(afero.NewOsFs(), dir), maxSize: maxSize}, nil
}

// NewMemoryStore returns a store backed by memory, for tests and development.
func NewMemoryStore(maxSize int64) *FSStore {
	return &FSStore{fs: afero.NewMemMapFs(), maxSize: maxSize}
}

func (s *FSStore) Put(_ context.Context, name string, content io.Reader) (*BlobMetadata, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}

	tmp, err := afero.TempFile(s.fs, ".", ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
	}

	src := content
	if s.maxSize > 0 {
		src = io.LimitReader(content, s.maxSize+1)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("write blob: %w", err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		cleanup()
		return nil, ErrFileTooLarge
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return nil, fmt.Errorf("close blob: %w", err)
	}
	if err := s.fs.Rename(tmpName, name); err != nil {
		_ = s.fs.Remove(tmpName)
		return nil, fmt.Errorf("store blob: %w", err)
	}

	return &BlobMetadata{
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: ContentType(name),
		Size:        n,
		Hash:        fmt.Sprintf("%x", h.Sum(nil)),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *FSStore) Open(ctx context.Context, name string) (io.ReadCloser, *BlobMetadata, error) {
	meta, err := s.Stat(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return f, meta, nil
}

func (s *FSStore) Stat(_ context.Context, name string) (*BlobMetadata, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	fi, err := s.fs.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	if fi.IsDir() {
		return nil, ErrBlobNotFound
	}
	return &BlobMetadata{
		Name:        name,
		ContentType: ContentType(name),
		Size:        fi.Size(),
		CreatedAt:   fi.ModTime().UTC(),
	}, nil
}

func (s *FSStore) Delete(_ context.Context, name string) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	if err := s.fs.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// ContentType guesses the MIME type of name from its extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
