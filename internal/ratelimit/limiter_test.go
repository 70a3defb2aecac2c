package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestNew_InvalidArguments(t *testing.T) {
	if _, err := New(0, time.Second); err == nil {
		t.Error("expected error for zero permits")
	}
	if _, err := New(5, 0); err == nil {
		t.Error("expected error for zero window")
	}
}

func TestLimiter_Burst(t *testing.T) {
	l, err := New(3, time.Hour)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("expected permit %d within burst", i)
		}
	}
	if l.Allow() {
		t.Error("expected fourth permit to be refused")
	}
}

func TestLimiter_AcquireHonoursContext(t *testing.T) {
	l, err := New(1, time.Hour)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Error("expected acquire to fail once the bucket is empty")
	}
}

func TestLimiter_Nil(t *testing.T) {
	var l *Limiter
	if err := l.Acquire(context.Background()); err != nil {
		t.Errorf("nil limiter should admit, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("nil limiter should still report cancellation, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(2, time.Hour))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other clients should have their own budget, got %d", w.Code)
	}
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cl := NewClientLimiter(2, time.Minute)
	cl.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		cl.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	if cl.Clients() != 1000 {
		t.Fatalf("expected 1000 tracked clients, have %d", cl.Clients())
	}

	// an active client keeps its bucket across the sweep
	now = now.Add(30 * time.Second)
	cl.Allow("10.0.0.1")
	now = now.Add(45 * time.Second)
	cl.Allow("10.9.9.9")

	if cl.Clients() != 2 {
		t.Errorf("expected idle clients to be evicted, have %d", cl.Clients())
	}
}

func TestClientLimiter_EvictionKeepsBudget(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cl := NewClientLimiter(1, time.Minute)
	cl.now = func() time.Time { return now }

	if !cl.Allow("a") {
		t.Fatal("first request should pass")
	}
	if cl.Allow("a") {
		t.Fatal("second request inside the window should be limited")
	}
	now = now.Add(time.Minute)
	if !cl.Allow("a") {
		t.Error("a client idle for a full window should be admitted again")
	}
}
