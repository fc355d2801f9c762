package acumba

import (
	"context"
	"log/slog"
)

// Login authenticates the browser context against the web UI. When the
// page is already inside an authenticated session this is a no-op. The
// configured session persister only runs after the monitor has confirmed
// the login actually took; a blob of login-redirect cookies is worse than
// none.
func (s *Scraper) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	if err := s.browser.Navigate(ctx, s.config.loginUrl()); err != nil {
		return spanErr(span, err)
	}
	location, err := s.browser.Location(ctx)
	if err != nil {
		return spanErr(span, err)
	}
	if !IsLoginLocation(location) {
		slog.DebugContext(ctx, "session already authenticated", "location", location)
		return nil
	}

	// cookie consent banner shows up on fresh contexts only
	if err := s.browser.Click(ctx, cookieBannerSelector); err != nil {
		slog.DebugContext(ctx, "no cookie banner to dismiss", "err", err)
	}

	if err := s.browser.Fill(ctx, emailFieldSelector, s.config.Email); err != nil {
		return spanErr(span, &AuthError{Reason: "email field: " + err.Error()})
	}
	if err := s.browser.Fill(ctx, passwordFieldSelector, s.config.Password); err != nil {
		return spanErr(span, &AuthError{Reason: "password field: " + err.Error()})
	}
	if err := s.browser.Click(ctx, loginSubmitSelector); err != nil {
		return spanErr(span, &AuthError{Reason: "submit: " + err.Error()})
	}
	if err := s.browser.WaitLoad(ctx); err != nil {
		return spanErr(span, err)
	}
	s.settle(ctx)

	location, err = s.browser.Location(ctx)
	if err != nil {
		return spanErr(span, err)
	}
	if IsLoginLocation(location) {
		return spanErr(span, &AuthError{Reason: "still at login page after submitting credentials"})
	}

	if s.config.PersistSession != nil {
		if err := s.config.PersistSession(); err != nil {
			slog.WarnContext(ctx, "could not persist session state", "err", err)
		}
	}
	slog.InfoContext(ctx, "web authentication succeeded", "location", location)
	return nil
}
