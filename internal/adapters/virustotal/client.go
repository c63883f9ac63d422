// Package virustotal implements the optional URL reputation lookup against
// the VirusTotal v3 API. The client is strictly best-effort: callers treat
// every error as "no additional signal".
package virustotal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://www.virustotal.com/api/v3/urls"

// Client queries VirusTotal for URL verdicts. A minimum interval between
// requests keeps the free-tier quota happy; each call also carries its own
// timeout so a slow lookup can never stall an analysis.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	minInterval time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a new VirusTotal client.
func NewClient(apiKey string, timeout, minInterval time.Duration, logger *zap.Logger) *Client {
	return &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		minInterval: minInterval,
		logger:      logger,
	}
}

// analysisReport is the slice of the v3 response this client cares about.
type analysisReport struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious int `json:"malicious"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// IsMalicious reports whether VirusTotal's last analysis flagged the URL as
// malicious. An unknown URL (404) is simply not malicious.
func (c *Client) IsMalicious(ctx context.Context, url string) (bool, error) {
	if err := c.throttle(ctx); err != nil {
		return false, err
	}

	id := base64.RawURLEncoding.EncodeToString([]byte(url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+id, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build reputation request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("reputation request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("reputation service returned status %d", resp.StatusCode)
	}

	var report analysisReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return false, fmt.Errorf("failed to decode reputation response: %w", err)
	}

	malicious := report.Data.Attributes.LastAnalysisStats.Malicious > 0
	c.logger.Debug("Reputation lookup complete",
		zap.String("url", url),
		zap.Bool("malicious", malicious))
	return malicious, nil
}

// throttle enforces the minimum interval between requests, respecting
// context cancellation while waiting.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
