package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is the subset of an HTTP response the fetchers consume.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client issues outbound GET requests with per-call headers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

type restyClient struct {
	c *resty.Client
}

type restyResponse struct {
	r *resty.Response
}

func (r restyResponse) Body() []byte    { return r.r.Body() }
func (r restyResponse) StatusCode() int { return r.r.StatusCode() }

// NewRestyClient returns a tuned resty-backed client with the given timeout.
func NewRestyClient(timeout time.Duration) Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "finanzpuls/1.0 (+https://github.com/marktblick/finanzpuls)")
	return &restyClient{c: c}
}

func (rc *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := rc.c.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return restyResponse{r: resp}, nil
}
