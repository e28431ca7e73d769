// Package perspective is the client for the Perspective comment-analysis
// API. A non-success response never fails the pipeline: it degrades to an
// all-zero score map and is surfaced only through logs and metrics.
package perspective

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/metrics"
)

const (
	defaultMinInterval = 1 * time.Second
	defaultTimeout     = 30 * time.Second
)

// languages are the language hints sent with every analyze request.
var languages = []string{"en", "hi", "hi-Latn"}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config holds scoring client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	// MinInterval is the minimum delay between consecutive calls,
	// applied regardless of call outcome.
	MinInterval time.Duration
	Timeout     time.Duration
}

// Client submits text to the scoring service one call at a time, serialized
// by a fixed inter-call delay to respect the external rate limit.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     Logger
}

// NewClient creates a new scoring client.
func NewClient(cfg Config, logger Logger) *Client {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		logger:     logger,
	}
}

type analyzeComment struct {
	Text string `json:"text"`
}

type analyzeRequest struct {
	Comment             analyzeComment      `json:"comment"`
	Languages           []string            `json:"languages"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
}

type summaryScore struct {
	Value float64 `json:"value"`
}

type attributeScore struct {
	SummaryScore summaryScore `json:"summaryScore"`
}

type analyzeResponse struct {
	AttributeScores map[string]attributeScore `json:"attributeScores"`
}

// Score submits one text to the scoring service and returns a complete
// attribute score map, with 0 for attributes the service did not return.
// It never returns an error: any failure yields all zeros. The text is sent
// as-is; length and encoding limits are the service's concern.
func (c *Client) Score(ctx context.Context, text string) domain.ScoreMap {
	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("Rate limiter wait interrupted", "error", err)
		return domain.ZeroScores()
	}

	metrics.UnitsScored.Inc()

	scores, err := c.analyze(ctx, text)
	if err != nil {
		metrics.ScoringDegraded.Inc()
		c.logger.Warn("Scoring degraded to zero scores", "error", err)
		return domain.ZeroScores()
	}
	return scores
}

// analyze performs one analyze call and maps the response.
func (c *Client) analyze(ctx context.Context, text string) (domain.ScoreMap, error) {
	attrs := make(map[string]struct{}, len(domain.AttributePriority))
	for _, attr := range domain.AttributePriority {
		attrs[string(attr)] = struct{}{}
	}

	body, err := json.Marshal(analyzeRequest{
		Comment:             analyzeComment{Text: text},
		Languages:           languages,
		RequestedAttributes: attrs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.endpoint
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring service returned %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}

	scores := domain.ZeroScores()
	for _, attr := range domain.AttributePriority {
		if as, ok := parsed.AttributeScores[string(attr)]; ok {
			scores[attr] = as.SummaryScore.Value
		}
	}
	return scores, nil
}
