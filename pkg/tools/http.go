package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/httpclient"
)

var endpointPlaceholder = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// HTTPToolConfig is the kind-specific configuration of HTTP_GET and
// HTTP_POST tools, decoded from ToolSpec.Config.
type HTTPToolConfig struct {
	// Endpoint is a URL template; {param} segments are filled from bound
	// arguments at execution time.
	Endpoint string            `mapstructure:"endpoint"`
	Headers  map[string]string `mapstructure:"headers"`

	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`

	// MaxResponseBytes caps how much of the body is read. Zero means 1MB.
	MaxResponseBytes int64 `mapstructure:"max_response_bytes"`
}

// HTTPAdapter calls an external HTTP endpoint. Arguments consumed by the
// endpoint template travel in the path; the rest become query parameters
// for GET and a JSON body for POST.
type HTTPAdapter struct {
	spec   config.ToolSpec
	cfg    HTTPToolConfig
	client *httpclient.Client
}

var _ Adapter = (*HTTPAdapter)(nil)

func NewHTTPAdapter(spec config.ToolSpec) (*HTTPAdapter, error) {
	if spec.Kind != config.ToolHTTPGet && spec.Kind != config.ToolHTTPPost {
		return nil, fmt.Errorf("tool '%s': kind %s is not an HTTP tool", spec.Name, spec.Kind)
	}

	var cfg HTTPToolConfig
	if err := mapstructure.Decode(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("tool '%s': invalid config: %w", spec.Name, err)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tool '%s': endpoint is required", spec.Name)
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = 1 << 20
	}

	client := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseStandardRateLimitHeaders),
	)

	return &HTTPAdapter{spec: spec, cfg: cfg, client: client}, nil
}

func (a *HTTPAdapter) Name() string          { return a.spec.Name }
func (a *HTTPAdapter) Kind() config.ToolKind { return a.spec.Kind }

func (a *HTTPAdapter) Execute(ctx context.Context, args map[string]any, auth AuthContext) (*Result, error) {
	endpoint, consumed, err := a.renderEndpoint(args)
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	remaining := make(map[string]any)
	for key, value := range args {
		if !consumed[key] {
			remaining[key] = value
		}
	}

	var req *http.Request
	if a.spec.Kind == config.ToolHTTPGet {
		req, err = a.getRequest(ctx, endpoint, remaining)
	} else {
		req, err = a.postRequest(ctx, endpoint, remaining)
	}
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	for key, value := range a.cfg.Headers {
		req.Header.Set(key, value)
	}
	if auth.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+auth.BearerToken)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if retryErr, ok := httpclient.AsRetryable(err); ok && retryErr.RetryAfter > 0 {
			err = fmt.Errorf("endpoint still failing, retry in %s: %w", retryErr.RetryAfter, err)
		}
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxResponseBytes))
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ToolExecutionError{
			Tool: a.spec.Name,
			Err:  fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	result := &Result{
		Content:  string(body),
		Metadata: map[string]any{"status_code": resp.StatusCode},
	}
	var parsed any
	if json.Unmarshal(body, &parsed) == nil {
		result.Data = parsed
	}
	return result, nil
}

// renderEndpoint fills {param} segments from args and reports which
// arguments the template consumed.
func (a *HTTPAdapter) renderEndpoint(args map[string]any) (string, map[string]bool, error) {
	consumed := make(map[string]bool)
	var missing []string

	endpoint := endpointPlaceholder.ReplaceAllStringFunc(a.cfg.Endpoint, func(match string) string {
		param := match[1 : len(match)-1]
		value, ok := args[param]
		if !ok {
			missing = append(missing, param)
			return match
		}
		consumed[param] = true
		return url.PathEscape(fmt.Sprint(value))
	})

	if len(missing) > 0 {
		return "", nil, fmt.Errorf("endpoint template parameters not bound: %s", strings.Join(missing, ", "))
	}
	return endpoint, consumed, nil
}

func (a *HTTPAdapter) getRequest(ctx context.Context, endpoint string, remaining map[string]any) (*http.Request, error) {
	target, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	query := target.Query()
	for key, value := range remaining {
		query.Set(key, fmt.Sprint(value))
	}
	target.RawQuery = query.Encode()

	return http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
}

func (a *HTTPAdapter) postRequest(ctx context.Context, endpoint string, remaining map[string]any) (*http.Request, error) {
	payload, err := json.Marshal(remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}
	return req, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
