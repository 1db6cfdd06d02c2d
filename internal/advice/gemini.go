package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"

	"pydojo/internal/telemetry"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-2.0-flash"
	maxReplyBytes         = 64 << 10
)

var mentorPrompt = template.Must(template.New("mentor").Parse(`You are "Kofi the Python Mentor", a friendly and warm Ghanaian programming teacher.
The learner, {{.LearnerName}}, is working on this challenge: "{{.Challenge}}".
They wrote this code:
` + "```python" + `
{{.Source}}
` + "```" + `
It produced this error or outcome: "{{.Problem}}".

Provide a short, encouraging hint (max 3 sentences) in a friendly Ghanaian tone.
Use local expressions like "Chale", "Akwaaba", or "Don't worry kraa".
Don't give the direct answer, just guide them.
`))

type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Client   *http.Client
}

// GeminiAdvisor asks the Gemini generateContent API for a mentor hint.
type GeminiAdvisor struct {
	cfg    GeminiConfig
	logger *telemetry.Logger
}

func NewGeminiAdvisor(cfg GeminiConfig, logger *telemetry.Logger) *GeminiAdvisor {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGeminiEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &GeminiAdvisor{cfg: cfg, logger: logger}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiAdvisor) Advise(ctx context.Context, req Request) string {
	reply, err := g.generate(ctx, req)
	if err != nil {
		g.logger.Warn("advice.gemini_failed", map[string]any{"model": g.cfg.Model, "error": err.Error()})
		return FallbackMessage
	}
	if strings.TrimSpace(reply) == "" {
		return EmptyReplyMessage
	}
	return strings.TrimSpace(reply)
}

func (g *GeminiAdvisor) generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return "", fmt.Errorf("gemini: no api key configured")
	}
	prompt, err := renderPrompt(req)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(g.cfg.Endpoint, "/") + "/models/" + url.PathEscape(g.cfg.Model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.cfg.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("gemini: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini: decode: %w", err)
	}
	var b strings.Builder
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String(), nil
}

func renderPrompt(req Request) (string, error) {
	name := strings.TrimSpace(req.LearnerName)
	if name == "" {
		name = "Champion"
	}
	data := struct {
		LearnerName, Challenge, Source, Problem string
	}{name, req.Challenge, req.Source, req.Problem}
	var b strings.Builder
	if err := mentorPrompt.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
