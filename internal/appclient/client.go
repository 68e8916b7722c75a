// File: internal/appclient/client.go
package appclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crispud/semgrep/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CIUpload is the payload ci posts after a scan: the result envelope plus
// the repository identity the app files it under.
type CIUpload struct {
	Repository string                  `json:"repository"`
	Branch     string                  `json:"branch"`
	Commit     string                  `json:"commit"`
	Results    *schemas.ResultEnvelope `json:"results"`
}

// Client talks to the hosted app. Requests are authenticated with the
// saved access token and paced by a rate limiter so bursts of uploads
// from a wrapper script do not hammer the API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a client for the app at baseURL.
func New(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		logger:  logger.Named("appclient"),
	}
}

// UploadFindings posts a CI scan's results to the app.
func (c *Client) UploadFindings(ctx context.Context, upload *CIUpload) error {
	return c.postJSON(ctx, "/api/agent/scans", upload)
}

// postJSON marshals payload, compresses it with brotli, and POSTs it.
// Findings payloads for large repositories compress an order of magnitude,
// hence the unconditional encoding.
func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(raw); err != nil {
		return fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("failed to finalize compressed payload: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request cancelled while rate-limited: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "br")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug("Posting to app",
		zap.String("path", path),
		zap.Int("raw_bytes", len(raw)),
		zap.Int("compressed_bytes", buf.Len()),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("the app rejected the access token; run `semgrep login` again")
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("app returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
