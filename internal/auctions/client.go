// Package auctions fetches the paginated SkyBlock auction snapshot over HTTP.
package auctions

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/ingestion"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.hypixel.net"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second

	auctionsPath = "/v2/skyblock/auctions"
)

// Client implements ingestion.AuctionSource against the public auctions endpoint.
type Client struct {
	http *resty.Client
}

// ClientOption configures Client.
type ClientOption func(*resty.Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *resty.Client) {
		c.SetRetryCount(n)
	}
}

// WithRetryDelay sets the initial and maximum retry wait.
func WithRetryDelay(initial, max time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetRetryWaitTime(initial)
		c.SetRetryMaxWaitTime(max)
	}
}

// WithAPIKey sends the key in the API-Key header.
func WithAPIKey(key string) ClientOption {
	return func(c *resty.Client) {
		if key != "" {
			c.SetHeader("API-Key", key)
		}
	}
}

// NewClient creates an auctions client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(DefaultMaxRetries).
		SetRetryWaitTime(DefaultRetryDelay).
		SetRetryMaxWaitTime(DefaultMaxDelay).
		AddRetryCondition(retryable)

	for _, opt := range opts {
		opt(c)
	}

	return &Client{http: c}
}

// Compile-time interface check.
var _ ingestion.AuctionSource = (*Client)(nil)

// retryable retries transport errors, throttling and server errors.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// FetchPage returns one page of the auction snapshot. Transport failures
// and non-200 responses wrap ingestion.ErrSourceUnavailable.
func (c *Client) FetchPage(ctx context.Context, page int) (*domain.AuctionPage, error) {
	var body pageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetResult(&body).
		Get(auctionsPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: page %d: %v", ingestion.ErrSourceUnavailable, page, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: page %d: status %d", ingestion.ErrSourceUnavailable, page, resp.StatusCode())
	}

	return body.toDomain(), nil
}

// pageResponse is the JSON shape of one auctions page.
type pageResponse struct {
	Success     bool              `json:"success"`
	Page        int               `json:"page"`
	TotalPages  int               `json:"totalPages"`
	LastUpdated int64             `json:"lastUpdated"`
	Auctions    []auctionResponse `json:"auctions"`
}

type auctionResponse struct {
	UUID        string `json:"uuid"`
	ItemName    string `json:"item_name"`
	Tier        string `json:"tier"`
	StartingBid int64  `json:"starting_bid"`
	ItemBytes   string `json:"item_bytes"`
	Start       int64  `json:"start"`
	Bin         bool   `json:"bin"`
}

func (p *pageResponse) toDomain() *domain.AuctionPage {
	listings := make([]domain.Listing, 0, len(p.Auctions))
	for _, a := range p.Auctions {
		listings = append(listings, domain.Listing{
			UUID:        a.UUID,
			ItemBytes:   a.ItemBytes,
			Bin:         a.Bin,
			StartingBid: a.StartingBid,
			Start:       a.Start,
			Tier:        a.Tier,
			ItemName:    a.ItemName,
		})
	}
	return &domain.AuctionPage{
		Success:     p.Success,
		Page:        p.Page,
		TotalPages:  p.TotalPages,
		LastUpdated: p.LastUpdated,
		Listings:    listings,
	}
}
