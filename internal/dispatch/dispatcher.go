// Package dispatch issues control commands to the Wingman backend.
//
// The dispatcher is a thin intent sender: each operation resolves on the
// backend's synchronous acknowledgement only. Whether the command actually
// took effect is observed later through the reconciler's view, never through
// the return value here.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBody       = 8 << 10
)

// Dispatcher sends control commands over the backend's HTTP control API.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// Option customises dispatcher behaviour.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for control calls.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New constructs a dispatcher bound to the given control API base URL.
func New(baseURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     log.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// CancelDownload asks the backend to cancel an in-flight download.
func (d *Dispatcher) CancelDownload(ctx context.Context, modelRepo, filePath string) error {
	return d.post(ctx, "/api/downloads/cancel", downloadQuery(modelRepo, filePath))
}

// RedownloadFile asks the backend to discard and re-fetch a file.
func (d *Dispatcher) RedownloadFile(ctx context.Context, modelRepo, filePath string) error {
	return d.post(ctx, "/api/downloads/redownload", downloadQuery(modelRepo, filePath))
}

// ResetDownload asks the backend to forget a download item entirely.
func (d *Dispatcher) ResetDownload(ctx context.Context, modelRepo, filePath string) error {
	return d.post(ctx, "/api/downloads/reset", downloadQuery(modelRepo, filePath))
}

// StartInference asks the backend to start an inference session under alias.
func (d *Dispatcher) StartInference(ctx context.Context, alias, modelRepo, filePath string, force bool) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return errors.New("dispatch: alias must not be blank")
	}

	query := url.Values{
		"alias":     {alias},
		"modelRepo": {modelRepo},
		"filePath":  {filePath},
	}
	if force {
		query.Set("force", "true")
	}
	return d.post(ctx, "/api/wingman/start", query)
}

// StopInference asks the backend to stop the session under alias.
func (d *Dispatcher) StopInference(ctx context.Context, alias string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return errors.New("dispatch: alias must not be blank")
	}
	return d.post(ctx, "/api/wingman/stop", url.Values{"alias": {alias}})
}

// ShutdownServer requests a graceful backend shutdown.
func (d *Dispatcher) ShutdownServer(ctx context.Context) error {
	return d.post(ctx, "/api/shutdown", nil)
}

func downloadQuery(modelRepo, filePath string) url.Values {
	return url.Values{
		"modelRepo": {modelRepo},
		"filePath":  {filePath},
	}
}

func (d *Dispatcher) post(ctx context.Context, path string, query url.Values) error {
	target := d.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("dispatch: build request %s: %w", path, err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("dispatch: %s: %w", path, readAPIError(resp))
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(body) == 0 {
		return errors.New(resp.Status)
	}
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			if msg := strings.TrimSpace(payload.Error); msg != "" {
				return errors.New(msg)
			}
		}
	}
	return errors.New(trimmed)
}
