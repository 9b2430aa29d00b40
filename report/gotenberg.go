// Package report talks to the Gotenberg HTML→PDF service.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidResponse indicates Gotenberg returned a non-success status.
	ErrInvalidResponse = errors.New("report: invalid response")
	// ErrDocumentTooSmall indicates the generated PDF was below the minimum
	// plausible size.
	ErrDocumentTooSmall = errors.New("report: pdf below minimum size")
)

const (
	pdfMinSizeBytes   = 1024
	pdfMaxRetry       = 2
	pdfRequestTimeout = 30 * time.Second
)

// Client wraps interactions with the Gotenberg API.
type Client struct {
	endpoint   string
	httpClient *http.Client
	retries    int
	minSize    int
}

// NewClient constructs a client for the given Gotenberg endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		httpClient: &http.Client{Timeout: pdfRequestTimeout},
		retries:    pdfMaxRetry,
		minSize:    pdfMinSizeBytes,
	}
}

// Ping checks whether the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: health status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document. Transient upstream
// failures are retried; a response smaller than a printable document is
// treated as a failure.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("report: client not initialised")
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "document.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf, err := c.render(ctx, payload, contentType)
		if err == nil {
			return pdf, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) render(ctx context.Context, payload []byte, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/forms/chromium/convert/html", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(pdf) < c.minSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDocumentTooSmall, len(pdf))
	}
	return pdf, nil
}

// retryable reports whether another attempt can plausibly succeed: upstream
// 5xx responses and undersized documents; everything else fails fast.
func retryable(err error) bool {
	if errors.Is(err, ErrDocumentTooSmall) {
		return true
	}
	if errors.Is(err, ErrInvalidResponse) {
		return strings.Contains(err.Error(), "status 5")
	}
	return false
}
