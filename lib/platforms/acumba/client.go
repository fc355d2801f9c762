// Package acumba is a typed client for the Acumba mail platform's REST
// API. Every call goes through an injected rate-limit registry so the
// process as a whole honors the platform's per-endpoint budgets, and every
// response passes through a parsing boundary (parsers.go) before reaching
// the domain model.
package acumba

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"mailmetrics-backend/lib/ratelimit"
	"mailmetrics-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("platforms/acumba")

// endpoint budgets, mirrored from the platform's published limits
const (
	mediumRateCalls  = 10
	mediumRateWindow = time.Minute
)

type Client struct {
	http     *resty.Client
	token    string
	limits   *ratelimit.Registry
	identity *lru.Cache[int64, CampaignBasicInfo]
}

type ClientOptions struct {
	BaseUrl   string
	AuthToken string
	Timeout   time.Duration
	// Limits is required; the client has no budget of its own.
	Limits *ratelimit.Registry
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" || opts.AuthToken == "" {
		return nil, &ConfigError{Reason: "api base_url and auth_token must both be set"}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(timeout)
	client.SetHeader("user-agent", "mailmetrics-backend")

	telemetry.InstrumentResty(client, "platforms/acumba/http")

	identity, err := lru.New[int64, CampaignBasicInfo](512)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:     client,
		token:    opts.AuthToken,
		limits:   opts.Limits,
		identity: identity,
	}, nil
}

// getJSON performs a GET with the auth token as a query parameter and
// returns the raw body for the parsing boundary to normalize.
func (c *Client) getJSON(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("auth_token", c.token)
	for k, v := range params {
		req.SetQueryParam(k, v)
	}

	res, err := req.Get(endpoint)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: res.StatusCode(),
			Body:       truncate(res.String(), 200),
		}
	}
	return json.RawMessage(res.Body()), nil
}

// postForm performs a POST with the auth token as a form field, the shape
// the platform expects for mutating and account-level endpoints.
func (c *Client) postForm(ctx context.Context, endpoint string, fields map[string]string) (json.RawMessage, error) {
	form := map[string]string{"auth_token": c.token}
	for k, v := range fields {
		form[k] = v
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(endpoint)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: res.StatusCode(),
			Body:       truncate(res.String(), 200),
		}
	}
	return json.RawMessage(res.Body()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (c *Client) guard(ctx context.Context, key string, op func() error) error {
	return c.limits.Guard(ctx, key, mediumRateCalls, mediumRateWindow, op)
}

func formatId(id int64) string {
	return strconv.FormatInt(id, 10)
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
