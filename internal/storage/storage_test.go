package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	apperrors "go-roof-inspector/internal/errors"
)

func TestDossierID(t *testing.T) {
	a := DossierID("prop-1", 39.7392, -104.9903)
	b := DossierID("prop-1", 39.7392, -104.9903)
	if a != b {
		t.Errorf("expected stable id, got %s and %s", a, b)
	}
	if a == DossierID("prop-2", 39.7392, -104.9903) {
		t.Error("different property must yield a different id")
	}
	if a == DossierID("prop-1", 39.7393, -104.9903) {
		t.Error("different coordinates must yield a different id")
	}

	parsed, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("id is not a uuid: %v", err)
	}
	if parsed.Version() != 5 {
		t.Errorf("expected name-based v5 uuid, got v%d", parsed.Version())
	}
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage("https://cdn.example.com/")
	ctx := context.Background()

	url, err := s.Save(ctx, []byte("png"), ArtifactPath("abc", "normalized.png"), "image/png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if url != "https://cdn.example.com/dossiers/abc/normalized.png" {
		t.Errorf("unexpected url %q", url)
	}
	if ct := s.ContentType("dossiers/abc/normalized.png"); ct != "image/png" {
		t.Errorf("unexpected content type %q", ct)
	}
	data, err := s.Load(ctx, "dossiers/abc/normalized.png")
	if err != nil || string(data) != "png" {
		t.Errorf("unexpected load %q err=%v", data, err)
	}

	if _, err := s.Load(ctx, "missing"); !apperrors.IsType(err, apperrors.ErrorTypeStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestLocalStorage(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "")
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	ctx := context.Background()

	url, err := s.Save(ctx, []byte("jpeg"), "dossiers/x/aerial.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("expected file url, got %q", url)
	}
	onDisk, err := os.ReadFile(filepath.Join(root, "dossiers", "x", "aerial.jpg"))
	if err != nil || string(onDisk) != "jpeg" {
		t.Errorf("artifact not written: %q err=%v", onDisk, err)
	}

	if _, err := s.Save(ctx, []byte("x"), "../escape", "text/plain"); err == nil {
		t.Error("expected path traversal to be rejected")
	}

	served, err := NewLocalStorage(root, "http://localhost:8080/artifacts/")
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	url, _ = served.Save(ctx, []byte("y"), "/dossiers/x/mask.png", "image/png")
	if url != "http://localhost:8080/artifacts/dossiers/x/mask.png" {
		t.Errorf("unexpected served url %q", url)
	}
}
