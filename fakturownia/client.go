package fakturownia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
)

var ErrNotFound = errors.New("fakturownia: not found")

// APIError is a non-2xx answer other than 404.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fakturownia api error %d: %s", e.StatusCode, e.Body)
}

// Client talks to one Fakturownia account. Build it once per process.
type Client struct {
	cfg     config.FakturowniaConfig
	http    *http.Client
	limiter <-chan time.Time
}

func NewClient(cfg config.FakturowniaConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, errors.New("fakturownia api token is empty")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("fakturownia base url is empty")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.RateLimitPerMin > 0 {
		c.limiter = time.Tick(time.Minute / time.Duration(cfg.RateLimitPerMin))
	}
	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	select {
	case <-c.limiter:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.cfg.APIToken)
	endpoint := c.cfg.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req, out)
}

func (c *Client) sendJSON(ctx context.Context, method string, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// listPages walks page=1.. until a page shorter than PageSize comes back.
func listPages[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		pageParams := url.Values{}
		for k, v := range params {
			pageParams[k] = v
		}
		pageParams.Set("per_page", fmt.Sprint(c.cfg.PageSize))
		pageParams.Set("page", fmt.Sprint(page))

		var items []T
		if err := c.getJSON(ctx, path, pageParams, &items); err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < c.cfg.PageSize {
			return all, nil
		}
	}
}
