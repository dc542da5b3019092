package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/httpclient"
)

// OCRToolConfig is the kind-specific configuration of OCR tools. The
// extraction itself runs in an external service.
type OCRToolConfig struct {
	Endpoint string `mapstructure:"endpoint"`

	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
}

// OCRAdapter posts a document reference to the configured extraction
// service and returns the recognized text.
type OCRAdapter struct {
	spec   config.ToolSpec
	cfg    OCRToolConfig
	client *httpclient.Client
}

var _ Adapter = (*OCRAdapter)(nil)

func NewOCRAdapter(spec config.ToolSpec) (*OCRAdapter, error) {
	if spec.Kind != config.ToolOCR {
		return nil, fmt.Errorf("tool '%s': kind %s is not OCR", spec.Name, spec.Kind)
	}

	var cfg OCRToolConfig
	if err := mapstructure.Decode(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("tool '%s': invalid config: %w", spec.Name, err)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tool '%s': endpoint is required", spec.Name)
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}

	client := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
	)

	return &OCRAdapter{spec: spec, cfg: cfg, client: client}, nil
}

func (a *OCRAdapter) Name() string          { return a.spec.Name }
func (a *OCRAdapter) Kind() config.ToolKind { return a.spec.Kind }

type ocrRequest struct {
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Text string `json:"text"`
}

func (a *OCRAdapter) Execute(ctx context.Context, args map[string]any, auth AuthContext) (*Result, error) {
	documentURL, _ := args["document_url"].(string)
	if strings.TrimSpace(documentURL) == "" {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: fmt.Errorf("document_url argument is required")}
	}

	payload, err := json.Marshal(ocrRequest{DocumentURL: documentURL})
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}
	if auth.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+auth.BearerToken)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ToolExecutionError{
			Tool: a.spec.Name,
			Err:  fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var parsed ocrResponse
	text := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Text != "" {
		text = parsed.Text
	}

	return &Result{
		Content:  text,
		Metadata: map[string]any{"status_code": resp.StatusCode},
	}, nil
}
