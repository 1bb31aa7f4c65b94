package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/transmeralda/fleetdocs/constants"
)

// ClientConfig configures the chat-completions extractor.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client extracts driver fields through an OpenAI-compatible
// chat/completions endpoint. Unparseable or schema-invalid output is
// not an error: the caller gets the category skeleton with
// FailedToParse set, and the document contributes no field evidence.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "ministral-8b-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

func (c *Client) Extract(ctx context.Context, ocrText string, cat constants.Category) (ExtractedDocument, error) {
	rid := uuid.New().String()
	start := time.Now()

	schema := BuildSchema(cat)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt(cat, schema)},
			{"role": "user", "content": buildUserPrompt(ocrText)},
		},
	}

	c.log.Info("extract.start",
		"req_id", rid,
		"category", cat,
		"model", c.cfg.Model,
		"text_len", len(ocrText),
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("extract.http_error",
			"req_id", rid, "category", cat, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ExtractedDocument{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return ExtractedDocument{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return ExtractedDocument{}, fmt.Errorf("no choices in completion response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	doc, ok := c.parse(rid, cat, schema, content)
	if !ok {
		c.log.Warn("extract.fallback_skeleton",
			"req_id", rid, "category", cat,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ExtractedDocument{
			Category:      cat,
			Fields:        FallbackFields(cat),
			FailedToParse: true,
			Raw:           []byte(content),
		}, nil
	}

	c.log.Info("extract.ok",
		"req_id", rid, "category", cat, "fields", len(doc.Fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (c *Client) parse(rid string, cat constants.Category, schema map[string]any, content string) (ExtractedDocument, bool) {
	obj, found := extractJSONObject(content)
	if !found {
		c.log.Warn("extract.no_json_object", "req_id", rid, "category", cat, "content_len", len(content))
		return ExtractedDocument{}, false
	}
	if err := ValidateAgainstSchema(schema, obj); err != nil {
		c.log.Warn("extract.schema_validation_failed", "req_id", rid, "category", cat, "error", err)
		return ExtractedDocument{}, false
	}
	var fields DocumentFields
	if err := json.Unmarshal(obj, &fields); err != nil {
		c.log.Warn("extract.unmarshal_failed", "req_id", rid, "category", cat, "error", err)
		return ExtractedDocument{}, false
	}
	return ExtractedDocument{
		Category: cat,
		Fields:   TrimFields(fields),
		Raw:      obj,
	}, true
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("completion response body close error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("completion status %d: %s", resp.StatusCode, buf.String())
	}

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes(), nil
}
