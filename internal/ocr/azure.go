package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	apiVersion     = "2023-07-31"
	analyzePath    = "/formrecognizer/documentModels/prebuilt-read:analyze"
	keyHeader      = "Ocp-Apim-Subscription-Key"
	locationHeader = "Operation-Location"
)

// AzureClient talks to an Azure Document Intelligence endpoint. Submit
// returns 202 with an Operation-Location header; Poll reads that URL
// until the operation reaches a terminal state.
type AzureClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

func NewAzureClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *AzureClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AzureClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (c *AzureClient) Submit(ctx context.Context, content []byte, mimeType string) (OperationHandle, error) {
	reqID := uuid.New().String()
	url := fmt.Sprintf("%s%s?api-version=%s", c.endpoint, analyzePath, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return OperationHandle{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set(keyHeader, c.apiKey)

	c.logger.Info("ocr.submit", "req_id", reqID, "bytes", len(content), "mime_type", mimeType)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.submit.send_error", "req_id", reqID, "error", err)
		return OperationHandle{}, fmt.Errorf("submit document: %w", err)
	}
	defer drainAndClose(resp.Body, c.logger)

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("ocr.submit.rejected", "req_id", reqID, "status", resp.StatusCode, "body", string(raw))
		return OperationHandle{}, fmt.Errorf("analyze submit: unexpected status %d", resp.StatusCode)
	}

	loc := resp.Header.Get(locationHeader)
	if loc == "" {
		return OperationHandle{}, fmt.Errorf("analyze submit: missing %s header", locationHeader)
	}
	return OperationHandle{URL: loc}, nil
}

type analyzeResponse struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
	} `json:"analyzeResult"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AzureClient) Poll(ctx context.Context, op OperationHandle) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, op.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set(keyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("poll operation: %w", err)
	}
	defer drainAndClose(resp.Body, c.logger)

	if resp.StatusCode/100 != 2 {
		return Result{}, fmt.Errorf("poll operation: unexpected status %d", resp.StatusCode)
	}

	var body analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decode poll response: %w", err)
	}

	res := Result{State: OperationState(body.Status)}
	switch res.State {
	case StateSucceeded:
		res.Text = body.AnalyzeResult.Content
	case StateFailed:
		res.Error = fmt.Sprintf("%s: %s", body.Error.Code, body.Error.Message)
	case StateNotStarted, StateRunning:
	default:
		return Result{}, fmt.Errorf("poll operation: unknown status %q", body.Status)
	}
	return res, nil
}

func drainAndClose(body io.ReadCloser, logger *slog.Logger) {
	_, _ = io.Copy(io.Discard, body)
	if err := body.Close(); err != nil {
		logger.Warn("ocr.response_body_close_error", "error", err)
	}
}
