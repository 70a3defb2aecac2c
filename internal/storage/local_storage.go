package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "go-roof-inspector/internal/errors"
)

type localStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage writes artifacts under root and serves them from baseURL.
// An empty baseURL yields file:// URLs.
func NewLocalStorage(root, baseURL string) (BlobStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &localStorage{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *localStorage) Save(_ context.Context, data []byte, path, _ string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if err := validatePath(path); err != nil {
		return "", err
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", apperrors.NewStorageError("create artifact directory", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", apperrors.NewStorageError(fmt.Sprintf("write %s failed", path), err)
	}

	if s.baseURL == "" {
		return "file://" + filepath.ToSlash(full), nil
	}
	return s.baseURL + "/" + path, nil
}

func (s *localStorage) Load(_ context.Context, path string) ([]byte, error) {
	path = strings.TrimLeft(path, "/")
	if err := validatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("read %s failed", path), err)
	}
	return data, nil
}

func (s *localStorage) Close() error {
	return nil
}

// MemoryStorage keeps artifacts in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
	baseURL string
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://roof-inspector"
	}
	return &MemoryStorage{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *MemoryStorage) Save(_ context.Context, data []byte, path, contentType string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if err := validatePath(path); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[path] = append([]byte(nil), data...)
	s.types[path] = contentType
	s.mu.Unlock()
	return s.baseURL + "/" + path, nil
}

func (s *MemoryStorage) Load(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[strings.TrimLeft(path, "/")]
	if !ok {
		return nil, apperrors.NewStorageError(fmt.Sprintf("%s not found", path), nil)
	}
	return append([]byte(nil), data...), nil
}

// ContentType returns the stored content type of path.
func (s *MemoryStorage) ContentType(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[path]
}

// Paths lists stored keys.
func (s *MemoryStorage) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	return out
}

func (s *MemoryStorage) Close() error {
	return nil
}
