package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// HTTPConfig configures an OpenAI-compatible chat completions endpoint.
type HTTPConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MinConfidence float64
}

// HTTPClassifier asks a chat completions endpoint for a JSON classification.
type HTTPClassifier struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPClassifier(cfg HTTPConfig, client *http.Client) (*HTTPClassifier, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("classify: base url required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("classify: model required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPClassifier{cfg: cfg, client: client}, nil
}

const systemPrompt = `You classify replies to cold outreach messages.
Return STRICT JSON ONLY with keys: category, confidence, signals, strategy.
category must be one of: hot_lead, meeting_request, warm_lead, question, objection, not_interested, negative, neutral.
confidence is a number between 0 and 1.
signals is an array of short tags describing what you detected.
strategy must be one of: advance, reassure, handle_objection, answer_then_advance, abandon, continue.`

func buildUserPrompt(req Request) string {
	var b strings.Builder
	if m := req.Contact; m != (ContactMeta{}) {
		b.WriteString("Contact:\n")
		for _, kv := range [][2]string{{"name", m.Name}, {"headline", m.Headline}, {"company", m.Company}, {"platform", m.Platform}} {
			if strings.TrimSpace(kv[1]) == "" {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %s\n", kv[0], strings.TrimSpace(kv[1])))
		}
	}
	if len(req.Context) > 0 {
		b.WriteString("Conversation so far (oldest first):\n")
		for _, t := range req.Context {
			b.WriteString(fmt.Sprintf("- [%s] %s\n", t.Direction, truncate(t.Content, 400)))
		}
	}
	b.WriteString("Reply to classify:\n")
	b.WriteString(strings.TrimSpace(req.Text))
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

// Classify calls the endpoint. Transport failures map to ErrClassifierTimeout or
// ErrClassifierUnavailable; content that cannot be parsed degrades to Fallback().
func (c *HTTPClassifier) Classify(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"
	payload := map[string]interface{}{
		"model":       c.cfg.Model,
		"temperature": 0,
		"response_format": map[string]string{
			"type": "json_object",
		},
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(req)},
		},
	}
	buf, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, transportError(ctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrClassifierUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var wrapper struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		if ctx.Err() != nil {
			return Result{}, transportError(ctx, err)
		}
		return Fallback(), nil
	}
	if len(wrapper.Choices) == 0 {
		return Fallback(), nil
	}
	raw, ok := parseRaw(wrapper.Choices[0].Message.Content)
	if !ok {
		return Fallback(), nil
	}
	return Normalize(raw, c.cfg.MinConfidence), nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrClassifierTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrClassifierTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
}

func parseRaw(content string) (Raw, bool) {
	obj := extractJSONObject(content)
	if obj == "" {
		return Raw{}, false
	}
	var raw Raw
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Raw{}, false
	}
	return raw, true
}

// extractJSONObject returns the outermost {...} span, tolerating code fences or prose around it.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
