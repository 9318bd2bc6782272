package gen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bukhantcev/stavfitness26/pkg/smm/post"
)

func testGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "test-key"
	return New(cfg, nil)
}

func TestGeneratePost(t *testing.T) {
	profile := post.DefaultProfile()

	t.Run("success", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotBody map[string]any

		g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": "  Great offer today! #fitness  "}},
				},
			})
		})

		text, err := g.GeneratePost(context.Background(), profile, post.KindOffer, "mention the flyer")
		if err != nil {
			t.Fatalf("GeneratePost: %v", err)
		}
		if text != "Great offer today! #fitness" {
			t.Errorf("text = %q, want trimmed content", text)
		}
		if gotPath != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", gotPath)
		}
		if gotAuth != "Bearer test-key" {
			t.Errorf("auth header = %q", gotAuth)
		}
		if gotBody["model"] != "gpt-4.1-mini" {
			t.Errorf("model = %v", gotBody["model"])
		}
	})

	t.Run("backend error is generic", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"overloaded"}`, http.StatusInternalServerError)
		})

		_, err := g.GeneratePost(context.Background(), profile, post.KindTip, "")
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, ErrImagePermission) {
			t.Error("text failure must not map to the image permission fallback")
		}
	})

	t.Run("forbidden on text endpoint stays generic", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})

		_, err := g.GeneratePost(context.Background(), profile, post.KindTip, "")
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, ErrImagePermission) {
			t.Error("403 on chat completions must not become ErrImagePermission")
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		})

		if _, err := g.GeneratePost(context.Background(), profile, post.KindTip, ""); err == nil {
			t.Fatal("expected error for empty choices")
		}
	})
}

func TestGenerateImage(t *testing.T) {
	t.Run("success decodes base64 payload", func(t *testing.T) {
		want := []byte{0x89, 0x50, 0x4e, 0x47}
		g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/images/generations" {
				t.Errorf("path = %q", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"b64_json": base64.StdEncoding.EncodeToString(want)},
				},
			})
		})

		got, err := g.GenerateImage(context.Background(), "bright studio")
		if err != nil {
			t.Fatalf("GenerateImage: %v", err)
		}
		if string(got) != string(want) {
			t.Errorf("image bytes do not round-trip")
		}
	})

	t.Run("forbidden becomes permission fallback", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"org not verified"}}`, http.StatusForbidden)
		})

		img, err := g.GenerateImage(context.Background(), "bright studio")
		if !errors.Is(err, ErrImagePermission) {
			t.Fatalf("err = %v, want ErrImagePermission", err)
		}
		if img != nil {
			t.Error("permission fallback must return nil bytes")
		}
	})

	t.Run("other failure is generic", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})

		_, err := g.GenerateImage(context.Background(), "bright studio")
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, ErrImagePermission) {
			t.Errorf("err = %v, want generic", err)
		}
	})

	t.Run("empty prompt rejected locally", func(t *testing.T) {
		called := false
		g := testGateway(t, func(http.ResponseWriter, *http.Request) { called = true })

		if _, err := g.GenerateImage(context.Background(), ""); err == nil {
			t.Fatal("expected error for empty prompt")
		}
		if called {
			t.Error("empty prompt must not reach the backend")
		}
	})
}

func TestBuildUserPrompt(t *testing.T) {
	t.Parallel()

	p := post.DefaultProfile()
	prompt := BuildUserPrompt(p, post.KindMotivation, "monday morning")

	for _, want := range []string{p.Name, p.Address, p.Phone, `"motivation"`, "monday morning"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Deterministic: same inputs, same prompt.
	if prompt != BuildUserPrompt(p, post.KindMotivation, "monday morning") {
		t.Error("prompt assembly is not deterministic")
	}
}

func TestBuildImagePrompt(t *testing.T) {
	t.Parallel()

	p := post.DefaultProfile()

	t.Run("limits services to two", func(t *testing.T) {
		prompt := BuildImagePrompt(p, "")
		if !strings.Contains(prompt, p.Services[0]) || !strings.Contains(prompt, p.Services[1]) {
			t.Error("prompt missing leading services")
		}
		if strings.Contains(prompt, p.Services[2]) {
			t.Error("prompt includes more than two services")
		}
		if strings.Contains(prompt, "Theme:") {
			t.Error("prompt has a theme without one being set")
		}
	})

	t.Run("appends theme", func(t *testing.T) {
		prompt := BuildImagePrompt(p, "sunrise stretching")
		if !strings.Contains(prompt, "Theme: sunrise stretching.") {
			t.Errorf("prompt missing theme: %q", prompt)
		}
	})
}
