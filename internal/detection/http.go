package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stepwise/internal/services"
)

// maxResponseBytes caps detector replies; a frame never yields more.
const maxResponseBytes = 4 << 20

// HTTPDetector posts each frame as a multipart upload to a remote inference
// service and decodes the JSON Response it returns.
type HTTPDetector struct {
	url        string
	threshold  float64
	httpClient *http.Client
}

var _ Detector = (*HTTPDetector)(nil)

// Option configures an HTTPDetector.
type Option func(*HTTPDetector)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *HTTPDetector) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// NewHTTPDetector creates a detector client for the given inference URL.
func NewHTTPDetector(endpoint string, threshold float64, timeout time.Duration, opts ...Option) (*HTTPDetector, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("detector url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &HTTPDetector{
		url:        endpoint,
		threshold:  threshold,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Detect uploads image and returns the filtered detections.
func (d *HTTPDetector) Detect(ctx context.Context, image []byte) (Set, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "encode", "create form file", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "encode", "copy frame", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "encode", "close form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "request", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "request", "send request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "response", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrDetector, "detector", "response",
			fmt.Sprintf("inference failed with status %d", resp.StatusCode), nil)
	}
	set, err := DecodeResponse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrDetector, "detector", "response", "", err)
	}
	return set.Filter(d.threshold), nil
}

// CheckHealth probes the /health endpoint on the detector's host.
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	parsed, err := url.Parse(d.url)
	if err != nil {
		return err
	}
	health := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/health"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, health.String(), nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detector unhealthy: %d", resp.StatusCode)
	}
	return nil
}
