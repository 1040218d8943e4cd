package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"watchlist/pkg/logger"
	"watchlist/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
)

// ErrNotFound means the provider returned no results for the title.
var ErrNotFound = errors.New("movie not found in TMDB database")

// ProviderError wraps transport failures, non-2xx statuses and undecodable bodies.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("TMDB API request failed: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("TMDB API request failed: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Lookup resolves a free-text title to movie metadata.
type Lookup interface {
	SearchByTitle(ctx context.Context, title string) (*models.MetadataResult, error)
}

type Options struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Timeout      time.Duration
}

// Client talks to the TMDB v3 API.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	logger       *logrus.Logger
}

func NewClient(opts Options, log *logrus.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = DefaultImageBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		apiKey:       opts.APIKey,
		baseURL:      opts.BaseURL,
		imageBaseURL: opts.ImageBaseURL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		logger:       log,
	}
}

type searchResponse struct {
	Results []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	} `json:"results"`
}

type detailsResponse struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Overview   *string `json:"overview"`
	PosterPath *string `json:"poster_path"`
}

// SearchByTitle searches by title, takes the provider's first result and
// fetches its detail record. No retries.
func (c *Client) SearchByTitle(ctx context.Context, title string) (*models.MetadataResult, error) {
	var search searchResponse
	if err := c.get(ctx, "search", "/search/movie", url.Values{"query": {title}}, &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		c.logger.WithField("title", title).Debug("TMDB search returned no results")
		return nil, ErrNotFound
	}

	id := search.Results[0].ID
	var details detailsResponse
	if err := c.get(ctx, "details", "/movie/"+strconv.Itoa(id), nil, &details); err != nil {
		return nil, err
	}

	result := &models.MetadataResult{
		Title:      details.Title,
		ExternalID: strconv.Itoa(details.ID),
	}
	if result.Title == "" {
		result.Title = title
	}
	if details.ID == 0 {
		result.ExternalID = strconv.Itoa(id)
	}
	if details.PosterPath != nil && *details.PosterPath != "" {
		result.ImageURL = c.imageBaseURL + *details.PosterPath
	}
	if details.Overview != nil {
		result.Description = *details.Overview
	}

	c.logger.WithFields(logrus.Fields{
		"title":       title,
		"resolved":    result.Title,
		"external_id": result.ExternalID,
	}).Debug("TMDB lookup completed")

	return result, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, dest any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("invalid TMDB URL: %w", err)}
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WithFields(logrus.Fields{
			"op":          op,
			"status_code": resp.StatusCode,
			"body":        string(body),
		}).Warn("TMDB API returned non-OK status")
		return &ProviderError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
