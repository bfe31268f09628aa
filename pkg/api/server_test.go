package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestServer_RunAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewRouter(newDisplay(t), Options{}))
	if s.Name() != "http" {
		t.Errorf("Name() = %q", s.Name())
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var addr string
	select {
	case a := <-s.Ready():
		addr = a.String()
	case err := <-done:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestServer_ListenError(t *testing.T) {
	s := NewServer("127.0.0.1:-1", NewRouter(newDisplay(t), Options{}))
	if err := s.Run(t.Context()); err == nil {
		t.Error("Run() with invalid address succeeded")
	}
}
