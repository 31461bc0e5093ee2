package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"prepme-backend/internal/metrics"
	"prepme-backend/internal/models"
)

var (
	// ErrNotConfigured is returned when no webhook URL was provided.
	ErrNotConfigured = errors.New("profile analysis webhook is not configured")
	// ErrInvalidResponse means the webhook answered 2xx without a usable profile.
	ErrInvalidResponse = errors.New("invalid response format from analysis service")
)

const maxResponseBytes = 2 << 20

type analyzeRequest struct {
	LinkedInURL string `json:"linkedinUrl"`
	UserID      string `json:"userId"`
	Timestamp   string `json:"timestamp"`
	Source      string `json:"source"`
}

// Config contains options for creating a new Client.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	// Source identifies this deployment to the webhook, usually the app origin.
	Source string
}

// Client posts LinkedIn profile URLs to the analysis automation webhook and
// decodes the prep sheet it returns.
type Client struct {
	url     string
	source  string
	http    *http.Client
	logger  *zap.Logger
	nowFunc func() time.Time
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	return &Client{
		url:     cfg.WebhookURL,
		source:  cfg.Source,
		http:    httpClient,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Analyze sends one profile for analysis. The call is made once; failures are
// returned to the caller as is.
func (c *Client) Analyze(ctx context.Context, linkedinURL, userID string) (*models.ProfileData, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(analyzeRequest{
		LinkedInURL: linkedinURL,
		UserID:      userID,
		Timestamp:   c.nowFunc().UTC().Format(time.RFC3339),
		Source:      c.source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAnalysis(time.Since(start).Seconds(), false)
		return nil, fmt.Errorf("analysis webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.ObserveAnalysis(time.Since(start).Seconds(), false)
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveAnalysis(time.Since(start).Seconds(), false)
		c.logger.Warn("Analysis webhook returned an error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)),
		)
		return nil, fmt.Errorf("failed to analyze profile: %s", http.StatusText(resp.StatusCode))
	}

	var profile models.ProfileData
	if err := json.Unmarshal(body, &profile); err != nil {
		metrics.ObserveAnalysis(time.Since(start).Seconds(), false)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if profile.PersonalInfo == nil {
		metrics.ObserveAnalysis(time.Since(start).Seconds(), false)
		return nil, ErrInvalidResponse
	}

	metrics.ObserveAnalysis(time.Since(start).Seconds(), true)
	return &profile, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
