// Package companieshouse is a rate-limited client for the Companies House
// public data API.
package companieshouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

const defaultBaseURL = "https://api.company-information.service.gov.uk"

// Client talks to the Companies House API. All requests share one rate
// limiter so concurrent callers stay inside the API quota.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseURL     string
	apiKey      string
	maxRetries  int
	baseBackoff time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithMinDelay sets the minimum spacing between requests.
func WithMinDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithMaxRetries sets the retry budget for server errors.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the initial server-error backoff (used in tests).
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseBackoff = d
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a Companies House client. The API key is sent as the
// basic-auth username with an empty password, per the API contract.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(600*time.Millisecond), 1),
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		maxRetries:  3,
		baseBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompanyProfile is the subset of the company resource the pipeline uses.
type CompanyProfile struct {
	CompanyName    string `json:"company_name"`
	CompanyNumber  string `json:"company_number"`
	CompanyStatus  string `json:"company_status"`
	Type           string `json:"type"`
	DateOfCreation string `json:"date_of_creation"`
}

// NameElements is the structured name of an individual PSC.
type NameElements struct {
	Title    string `json:"title"`
	Forename string `json:"forename"`
	Surname  string `json:"surname"`
}

// PSC is one person-with-significant-control entry.
type PSC struct {
	Name             string       `json:"name"`
	Kind             string       `json:"kind"`
	NaturesOfControl []string     `json:"natures_of_control"`
	NameElements     NameElements `json:"name_elements"`
	CeasedOn         string       `json:"ceased_on"`
}

// Officer is one company officer entry.
type Officer struct {
	Name        string `json:"name"`
	OfficerRole string `json:"officer_role"`
	ResignedOn  string `json:"resigned_on"`
}

type pscList struct {
	Items []PSC `json:"items"`
}

type officerList struct {
	Items []Officer `json:"items"`
}

// Profile fetches the company profile. A company unknown to the registry
// yields (nil, nil).
func (c *Client) Profile(ctx context.Context, companyNumber string) (*CompanyProfile, error) {
	var profile CompanyProfile
	found, err := c.get(ctx, "/company/"+companyNumber, &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

// PSCs fetches the persons-with-significant-control list. A company with no
// PSC register yields an empty slice.
func (c *Client) PSCs(ctx context.Context, companyNumber string) ([]PSC, error) {
	var list pscList
	found, err := c.get(ctx, "/company/"+companyNumber+"/persons-with-significant-control", &list)
	if err != nil || !found {
		return nil, err
	}
	return list.Items, nil
}

// Officers fetches the officer list. A company with no officer data yields
// an empty slice.
func (c *Client) Officers(ctx context.Context, companyNumber string) ([]Officer, error) {
	var list officerList
	found, err := c.get(ctx, "/company/"+companyNumber+"/officers", &list)
	if err != nil || !found {
		return nil, err
	}
	return list.Items, nil
}

// get performs one rate-limited GET with the client's retry policy:
// 404 means absent (false, nil); 429 waits out Retry-After plus jitter
// without consuming the retry budget; 5xx retries with exponential backoff.
func (c *Client) get(ctx context.Context, path string, out any) (bool, error) {
	attempts := 0
	backoff := c.baseBackoff

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, eris.Wrap(err, "companieshouse: rate limit wait")
		}

		status, header, body, err := c.do(ctx, path)
		if err != nil {
			attempts++
			if attempts > c.maxRetries || !resilience.IsTransient(err) {
				return false, err
			}
			if !sleepCtx(ctx, backoff) {
				return false, eris.Wrap(ctx.Err(), "companieshouse: cancelled")
			}
			backoff *= 2
			continue
		}

		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return false, eris.Wrap(err, "companieshouse: decode response")
			}
			return true, nil

		case status == http.StatusNotFound:
			return false, nil

		case status == http.StatusTooManyRequests:
			// Quota pushback does not consume the retry budget.
			wait := retryAfterDelay(header.Get("Retry-After"))
			zap.L().Warn("companies house rate limited",
				zap.String("path", path),
				zap.Duration("wait", wait),
			)
			if !sleepCtx(ctx, wait) {
				return false, eris.Wrap(ctx.Err(), "companieshouse: cancelled")
			}

		case status >= 500:
			attempts++
			if attempts > c.maxRetries {
				return false, eris.Wrap(
					resilience.NewTransientError(fmt.Errorf("status %d after %d attempts", status, attempts), status),
					"companieshouse: server error")
			}
			zap.L().Warn("companies house server error, backing off",
				zap.String("path", path),
				zap.Int("status", status),
				zap.Int("attempt", attempts),
			)
			if !sleepCtx(ctx, backoff) {
				return false, eris.Wrap(ctx.Err(), "companieshouse: cancelled")
			}
			backoff *= 2

		default:
			return false, eris.Wrap(fmt.Errorf("unexpected status %d: %s", status, truncate(body)), "companieshouse: request")
		}
	}
}

func (c *Client) do(ctx context.Context, path string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, nil, eris.Wrap(err, "companieshouse: build request")
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, eris.Wrap(err, "companieshouse: execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, nil, eris.Wrap(err, "companieshouse: read response")
	}
	return resp.StatusCode, resp.Header, body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// retryAfterDelay parses a Retry-After header value in seconds, defaulting
// to 2s, and adds up to 500ms of jitter so parallel workers fan out.
func retryAfterDelay(header string) time.Duration {
	wait := 2 * time.Second
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	return wait + time.Duration(rand.Float64()*500)*time.Millisecond
}
