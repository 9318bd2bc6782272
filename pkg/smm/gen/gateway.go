// Package gen implements the generation gateway: prompt assembly from the
// brand profile plus one backend call for text, and image generation with
// a typed permission-denied fallback. Uses the OpenAI-compatible API
// format, which works with OpenAI and any compatible endpoint.
package gen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bukhantcev/stavfitness26/pkg/smm/post"
)

// ErrImagePermission is returned by GenerateImage when the backend denies
// access to the image model (HTTP 403). It is a soft failure: callers must
// proceed text-only and report the fallback reason, never a hard error.
var ErrImagePermission = errors.New(
	"image model access denied: the organization is not verified for image generation; proceeding without an image")

// systemPrompt is the fixed persona instruction for post generation.
const systemPrompt = `You are the SMM editor of a fitness studio. You write short, punchy posts for a channel:
- style: friendly, to the point, no fluff; 350-700 characters;
- 1-2 emoji at paragraph starts, 3-6 relevant hashtags at the end;
- a clear call to action: book a class / message us; no corporate jargon;
- no markdown links, plain text only; no stray quotes or CAPS LOCK;
- always include the slogan line: {name} - your body, your health, your harmony.`

// Config holds the generation backend settings.
type Config struct {
	// BaseURL is the API endpoint root (default https://api.openai.com/v1).
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Usually resolved from keyring or env.
	APIKey string `yaml:"api_key"`

	// TextModel is the chat-completion model for post text.
	TextModel string `yaml:"text_model"`

	// ImageModel is the image-generation model.
	ImageModel string `yaml:"image_model"`

	// Temperature controls text sampling (0 = backend default).
	Temperature float64 `yaml:"temperature"`

	// TimeoutSeconds bounds each backend call (default 120).
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// DefaultConfig returns gateway defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.openai.com/v1",
		TextModel:      "gpt-4.1-mini",
		ImageModel:     "gpt-image-1",
		Temperature:    0.8,
		TimeoutSeconds: 120,
	}
}

// Gateway talks to the generation backend. One call per operation, no
// retry: a failed generation is surfaced and the caller re-requests.
type Gateway struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Gateway from config.
func New(cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gpt-4.1-mini"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gpt-image-1"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Gateway{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     120 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger.With("component", "gen"),
	}
}

// BuildUserPrompt assembles the deterministic user prompt from profile
// fields, the post kind, and free-form extra instructions.
func BuildUserPrompt(p *post.Profile, kind post.Kind, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given:\n")
	fmt.Fprintf(&b, "- Studio: %s\n", p.Name)
	fmt.Fprintf(&b, "- Address: %s\n", p.Address)
	fmt.Fprintf(&b, "- Phone: %s\n", p.Phone)
	fmt.Fprintf(&b, "- Services: %s\n", strings.Join(p.Services, ", "))
	fmt.Fprintf(&b, "- Offers: %s\n", strings.Join(p.Offers, "; "))
	fmt.Fprintf(&b, "- Brand words: %s\n", strings.Join(p.BrandWords, ", "))
	fmt.Fprintf(&b, "- Tone: %s\n\n", p.Tone)
	fmt.Fprintf(&b, "Task: write a %q post for the studio channel. Append these hashtags at the end: %s.\n",
		string(kind), strings.Join(p.Hashtags, " "))
	b.WriteString("Work in an explicit offer when it fits (but not always). Mention the address and contact unobtrusively.\n")
	fmt.Fprintf(&b, "Extra instructions: %s\n", extra)
	return b.String()
}

// BuildImagePrompt constructs the image-generation prompt from the profile
// and an optional operator theme.
func BuildImagePrompt(p *post.Profile, theme string) string {
	services := p.Services
	if len(services) > 2 {
		services = services[:2]
	}
	prompt := fmt.Sprintf("Fitness studio %s. Style: %s. Focus: %s.",
		p.Name, p.ImageStyle, strings.Join(services, ", "))
	if theme != "" {
		prompt += " Theme: " + theme + "."
	}
	return prompt
}

// GeneratePost assembles the prompt and performs one chat-completion call.
// Failures propagate as a generic generation error; the caller decides
// whether to surface them or drop silently in the scheduled path.
func (g *Gateway) GeneratePost(ctx context.Context, p *post.Profile, kind post.Kind, extra string) (string, error) {
	sys := strings.ReplaceAll(systemPrompt, "{name}", p.Name)
	body := map[string]any{
		"model": g.cfg.TextModel,
		"messages": []map[string]string{
			{"role": "system", "content": sys},
			{"role": "user", "content": BuildUserPrompt(p, kind, extra)},
		},
	}
	if g.cfg.Temperature > 0 {
		body["temperature"] = g.cfg.Temperature
	}

	raw, err := g.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("completion response is empty")
	}

	g.logger.Info("post generated", "kind", string(kind), "chars", len(text))
	return text, nil
}

// GenerateImage performs one image-generation call. Three outcomes:
// image bytes and nil error; nil and ErrImagePermission (recoverable,
// continue without an image); nil and a generic error.
func (g *Gateway) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if prompt == "" {
		return nil, fmt.Errorf("image prompt is empty")
	}

	raw, err := g.post(ctx, "/images/generations", map[string]any{
		"model":  g.cfg.ImageModel,
		"prompt": prompt,
		"size":   "1024x1024",
	})
	if err != nil {
		// 403 on the image endpoint means the organization lacks access to
		// the image model; that is the recoverable text-only fallback.
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.statusCode == http.StatusForbidden {
			return nil, ErrImagePermission
		}
		return nil, err
	}

	var resp struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding image response: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("image response has no data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}

	g.logger.Info("image generated", "bytes", len(data))
	return data, nil
}

// apiError captures the HTTP status and a body snippet from the backend.
type apiError struct {
	statusCode int
	body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.statusCode, truncate(e.body, 200))
}

// post sends a JSON request and returns the raw response body on 200.
// Non-200 responses become an *apiError carrying the status and a body
// snippet.
func (g *Gateway) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("backend error",
			"path", path,
			"status", resp.StatusCode,
			"body", truncate(string(data), 200),
		)
		return nil, &apiError{statusCode: resp.StatusCode, body: string(data)}
	}

	return data, nil
}

// truncate shortens s to max characters for log/error output.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
