// Package acumba scrapes the authenticated Acumba mail web UI for the
// subscriber groups the REST API does not expose, hard bounces and
// non-openers chief among them. Everything here works through the
// browser.Browser capability set; the page markup is row lists (ul/li/div
// grids), not tables, so extraction goes through goquery over rendered
// HTML.
package acumba

import (
	"context"
	"fmt"
	"time"

	"mailmetrics-backend/lib/browser"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/acumba")

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Filter labels as the UI renders them.
const (
	FilterHardBounces = "Hard bounces"
	FilterNotOpened   = "No abiertos"
)

const (
	// header label that identifies the subscriber list container
	subscriberHeaderLabel = "Correo electrónico"

	emailFieldSelector    = `input[type="email"]`
	passwordFieldSelector = `input[type="password"]`
	loginSubmitSelector   = `#login-button`
	cookieBannerSelector  = `#onetrust-accept-btn-handler`
	pageSizeSelector      = `select`

	defaultPageSize = 15
	settleDelay     = 1500 * time.Millisecond
)

// Config carries everything needed to reach and re-enter the web UI.
type Config struct {
	// BaseUrl is the UI origin, e.g. https://mail.example.com.
	BaseUrl  string
	Email    string
	Password string
	// ProbeUrl is an authenticated-only page used to validate the
	// session. Defaults to the reports page under BaseUrl.
	ProbeUrl string
	// PersistSession, when set, runs after a verified login so the
	// session state outlives the process. Errors are logged, not fatal.
	PersistSession func() error
}

func (c Config) probeUrl() string {
	if c.ProbeUrl != "" {
		return c.ProbeUrl
	}
	return c.BaseUrl + "/reports/"
}

func (c Config) loginUrl() string {
	return c.BaseUrl + "/login/"
}

// Scraper owns one authenticated page context. Not safe for concurrent
// use; one campaign's extraction runs to completion before the next.
type Scraper struct {
	browser browser.Browser
	config  Config
	settle  func(ctx context.Context)
}

type Option func(*Scraper)

// WithSettle replaces the post-navigation settle delay, for tests.
func WithSettle(settle func(ctx context.Context)) Option {
	return func(s *Scraper) { s.settle = settle }
}

func NewScraper(b browser.Browser, config Config, opts ...Option) (*Scraper, error) {
	if config.BaseUrl == "" {
		return nil, fmt.Errorf("scraper base url must be set")
	}
	s := &Scraper{
		browser: b,
		config:  config,
		settle:  sleepSettle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func sleepSettle(ctx context.Context) {
	timer := time.NewTimer(settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
