package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateAccumulatesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if !req.Stream {
			t.Error("expected a streaming request")
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, tok := range []string{"Hello", ", ", "world"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", tok)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"eval_count":3}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model")
	got, err := client.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a test."},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "Hello, world" {
		t.Errorf("Generate() = %q, want %q", got, "Hello, world")
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "missing-model")
	_, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Generate() expected error for 404 response")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("API error should not be classified as unavailable")
	}
}

func TestGenerateUnreachable(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewOllamaClient(url, "test-model")
	_, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Generate() error = %v, want ErrUnavailable", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		fmt.Fprintln(w, `{"models":[]}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model")
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewOllamaClient(url, "test-model")
	err := client.Ping(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping() error = %v, want ErrUnavailable", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"models":[{"name":"qwen2.5:7b-instruct"},{"name":"llama3.2:3b"}]}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model")
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error: %v", err)
	}
	want := []string{"qwen2.5:7b-instruct", "llama3.2:3b"}
	if len(models) != len(want) {
		t.Fatalf("ListModels() = %v, want %v", models, want)
	}
	for i := range want {
		if models[i] != want[i] {
			t.Errorf("models[%d] = %q, want %q", i, models[i], want[i])
		}
	}
}

func TestModel(t *testing.T) {
	client := NewOllamaClient("", "qwen2.5:7b-instruct")
	if got := client.Model(); got != "qwen2.5:7b-instruct" {
		t.Errorf("Model() = %q", got)
	}
}
