package judge

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Judge0 status ids at or below statusProcessing are non-terminal.
const (
	statusQueued     = 1
	statusProcessing = 2
	statusAccepted   = 3
)

// BatchItem is one (source, stdin, expected output) triple submitted to the judge.
type BatchItem struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

// ResultStatus is the judge's status descriptor for one test run.
type ResultStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the judge's report for one test run. Fields the judge leaves
// null decode to their zero values.
type Result struct {
	Token          string       `json:"token"`
	Status         ResultStatus `json:"status"`
	Stdout         string       `json:"stdout"`
	Stderr         string       `json:"stderr"`
	CompileOutput  string       `json:"compile_output"`
	Message        string       `json:"message"`
	Time           string       `json:"time"`
	Memory         int          `json:"memory"`
	ExpectedOutput string       `json:"expected_output"`
}

// Terminal reports whether the judge has finished with this run.
func (r Result) Terminal() bool {
	return r.Status.ID > statusProcessing
}

// Accepted reports whether the run passed its test case.
func (r Result) Accepted() bool {
	return r.Status.ID == statusAccepted
}

// Client is the remote judge API surface the orchestration core depends on.
type Client interface {
	// CreateBatch submits a batch and returns one token per item, in order.
	CreateBatch(ctx context.Context, items []BatchItem) ([]string, error)

	// GetBatch fetches current results for the given tokens, in token order.
	GetBatch(ctx context.Context, tokens []string) ([]Result, error)
}

// StatusError is returned when the judge responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge returned status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether the error is a judge HTTP 429.
func IsRateLimited(err error) bool {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// ClientConfig holds connection settings for the judge API.
type ClientConfig struct {
	// BaseURL is the judge endpoint, e.g. "https://judge0-ce.p.rapidapi.com".
	BaseURL string `yaml:"baseURL"`

	// APIKey and APIHost are sent as the RapidAPI auth headers when set.
	APIKey  string `yaml:"apiKey"`
	APIHost string `yaml:"apiHost"`

	Timeout time.Duration `yaml:"timeout"`
}

// HTTPClient implements Client against a Judge0-compatible batch API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	apiHost string
	client  *http.Client
}

// NewHTTPClient creates a judge client.
func NewHTTPClient(cfg ClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("judge baseURL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		apiHost: cfg.APIHost,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type batchCreateRequest struct {
	Submissions []BatchItem `json:"submissions"`
}

type batchCreateResponse struct {
	Token string `json:"token"`
}

type batchGetResponse struct {
	Submissions []Result `json:"submissions"`
}

// CreateBatch submits all items in one call and returns their tokens.
func (c *HTTPClient) CreateBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	body, err := json.Marshal(batchCreateRequest{Submissions: items})
	if err != nil {
		return nil, fmt.Errorf("encode batch request failed: %w", err)
	}

	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	data, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}

	var created []batchCreateResponse
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("decode batch response failed: %w", err)
	}
	tokens := make([]string, 0, len(created))
	for _, item := range created {
		tokens = append(tokens, item.Token)
	}
	return tokens, nil
}

// GetBatch fetches results for all tokens in one call.
func (c *HTTPClient) GetBatch(ctx context.Context, tokens []string) ([]Result, error) {
	params := url.Values{}
	params.Set("tokens", strings.Join(tokens, ","))
	params.Set("base64_encoded", "false")
	params.Set("fields", "*")

	endpoint := c.baseURL + "/submissions/batch?" + params.Encode()
	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp batchGetResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode batch results failed: %w", err)
	}
	return resp.Submissions, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build judge request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read judge response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
