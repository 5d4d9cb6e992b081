package httpclient

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for HTTP requests to external collaborators (routing
// service, mail gateway).
type Client struct {
	r *resty.Client
}

// New creates a new HTTP client with sensible defaults.
func New() *Client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{r: r}
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithBaseURL sets the base URL for all requests.
func (c *Client) WithBaseURL(url string) *Client {
	c.r.SetBaseURL(url)
	return c
}

// WithBearerToken sets a bearer token for authentication.
func (c *Client) WithBearerToken(token string) *Client {
	c.r.SetAuthToken(token)
	return c
}

// WithHeader sets a custom header.
func (c *Client) WithHeader(key, value string) *Client {
	c.r.SetHeader(key, value)
	return c
}

// Raw returns the underlying resty client for advanced usage.
func (c *Client) Raw() *resty.Client {
	return c.r
}

// Request returns a new resty Request for chaining.
func (c *Client) Request() *resty.Request {
	return c.r.R()
}
