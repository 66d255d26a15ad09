package openrouter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientWithoutKey(t *testing.T) {
	t.Parallel()

	if c := NewClient(Config{APIKey: "  "}); c != nil {
		t.Fatalf("expected nil client without api key")
	}
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	cfg := &Config{Model: "m"}
	if _, err := cfg.New(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestVerifyModel(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		if r.URL.Path != "/models/waiter-model" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"waiter-model","object":"model","created":0,"owned_by":"test"}`))
	}))
	defer srv.Close()

	cfg := Config{BaseURL: srv.URL + "/", APIKey: "k", Model: "waiter-model", SiteName: "waiter"}
	if err := VerifyModel(context.Background(), cfg); err != nil {
		t.Fatalf("VerifyModel() error = %v", err)
	}
	if gotPath != "/models/waiter-model" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer k" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotTitle != "waiter" {
		t.Fatalf("unexpected X-Title header: %q", gotTitle)
	}
}

func TestVerifyModelUnknown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer srv.Close()

	cfg := Config{BaseURL: srv.URL, APIKey: "k", Model: "nope"}
	if err := VerifyModel(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}
