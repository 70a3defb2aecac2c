package acquisition

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "go-roof-inspector/internal/errors"
	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/internal/storage"
)

func tileServer(t *testing.T, failPath string) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string

	tile := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			tile.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	body, err := imaging.EncodePNG(tile)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if failPath != "" && r.URL.Path == failPath {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	return server, &paths
}

func TestTileProvider_StitchesMosaic(t *testing.T) {
	server, paths := tileServer(t, "")
	defer server.Close()

	p := NewTileProvider(ProviderConfig{
		Name:        "tiles",
		URLTemplate: server.URL + "/{z}/{x}/{y}.png?key={key}",
		APIKey:      "secret",
		Timeout:     time.Second,
	}, storage.NewHTTPFetcher(""))

	data, err := p.Fetch(context.Background(), 39.7392, -104.9903, 18)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	img, ct, err := imaging.Decode(data)
	if err != nil {
		t.Fatalf("mosaic not decodable: %v", err)
	}
	if ct != imaging.ContentTypePNG {
		t.Errorf("unexpected content type %s", ct)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 640 {
		t.Errorf("expected 640x640 crop, got %v", img.Bounds())
	}
	if len(*paths) != 9 {
		t.Errorf("expected 9 tile requests, got %d", len(*paths))
	}
	for _, path := range *paths {
		if !strings.HasPrefix(path, "/18/") {
			t.Errorf("unexpected tile path %s", path)
		}
	}
}

func TestTileProvider_MissingTileFailsCandidate(t *testing.T) {
	server, _ := tileServer(t, "")
	defer server.Close()

	p := NewTileProvider(ProviderConfig{
		Name:        "tiles",
		URLTemplate: server.URL + "/{z}/{x}/{y}.png?key={key}",
		APIKey:      "wrong",
		Timeout:     time.Second,
	}, storage.NewHTTPFetcher(""))

	_, err := p.Fetch(context.Background(), 0.5, 0.5, 3)
	if err == nil {
		t.Fatal("expected error when tiles are refused")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeProviderUnavailable) {
		t.Errorf("expected provider_unavailable, got %v", err)
	}
}

func TestStaticMapProvider(t *testing.T) {
	var got string
	body := encodeWidth(t, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		_, _ = w.Write(body)
	}))
	defer server.Close()

	p := NewStaticMapProvider(ProviderConfig{
		Name:        "static",
		URLTemplate: server.URL + "/staticmap?center={lat},{lon}&zoom={zoom}&size={size}&key={key}",
		APIKey:      "a b",
		Timeout:     time.Second,
	}, storage.NewHTTPFetcher(""))

	data, err := p.Fetch(context.Background(), 39.7392, -104.9903, 19)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(data) != len(body) {
		t.Errorf("unexpected payload length %d", len(data))
	}
	want := fmt.Sprintf("center=%s,%s&zoom=19&size=640x640&key=a+b", "39.739200", "-104.990300")
	if got != want {
		t.Errorf("unexpected query\n got: %s\nwant: %s", got, want)
	}
}
