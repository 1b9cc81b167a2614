// Package guardian implements the content retriever against the
// Guardian content API.
package guardian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

// DefaultBaseURL is the production content API endpoint.
const DefaultBaseURL = "https://content.guardianapis.com"

// DefaultTimeout bounds the single search request.
const DefaultTimeout = 10 * time.Second

// Config captures the parameters for the content API client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client retrieves articles for a search term. One Search call issues
// exactly one GET against the first results page, ordered newest-first.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a content API client. The API key is deliberately
// not checked here: the credential is validated at the first point of
// use so a misconfigured client fails on Search, before any network
// call, rather than at wiring time.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// searchRow is the subset of an upstream result row the pipeline keeps.
type searchRow struct {
	WebPublicationDate time.Time `json:"webPublicationDate"`
	WebTitle           string    `json:"webTitle"`
	WebURL             string    `json:"webUrl"`
}

// Search queries the content API and projects the results to a Batch,
// preserving upstream order. fromDate is a lower-bound publication date
// filter; when empty the from-date parameter is omitted entirely, not
// sent blank. An empty results list is a valid outcome.
//
// The upstream API returns a differently shaped body for a rejected key
// than for a rejected query: no envelope at all means the credential
// was refused, an envelope whose results field is not a list means the
// date filter was malformed.
func (c *Client) Search(ctx context.Context, query, fromDate string) (pipeline.Batch, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: credential not set", pipeline.ErrConfiguration)
	}

	endpoint, err := url.Parse(c.cfg.BaseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("%w: parse base url: %v", pipeline.ErrConfiguration, err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("order-by", "newest")
	params.Set("api-key", c.cfg.APIKey)
	if fromDate != "" {
		params.Set("from-date", fromDate)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", pipeline.ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: HTTP request failed: %v", pipeline.ErrTransport, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Response *struct {
			Results json.RawMessage `json:"results"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", pipeline.ErrTransport, err)
	}
	if envelope.Response == nil {
		return nil, fmt.Errorf("%w: API key is invalid", pipeline.ErrAuthentication)
	}

	var rows []searchRow
	if envelope.Response.Results == nil || json.Unmarshal(envelope.Response.Results, &rows) != nil {
		return nil, fmt.Errorf("%w: invalid date format", pipeline.ErrValidation)
	}

	batch := make(pipeline.Batch, 0, len(rows))
	for _, row := range rows {
		article := pipeline.Article{
			WebPublicationDate: row.WebPublicationDate,
			WebTitle:           row.WebTitle,
			WebURL:             row.WebURL,
		}
		if err := article.Validate(); err != nil {
			return nil, err
		}
		batch = append(batch, article)
	}

	c.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("results", len(batch)),
	)
	return batch, nil
}
