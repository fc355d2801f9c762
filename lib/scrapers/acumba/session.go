package acumba

import (
	"context"
	"log/slog"
	"strings"

	"mailmetrics-backend/lib/browser"
)

const loginPathSegment = "/login"

// IsLoginLocation reports whether a location is the platform's login
// page. The session expiring mid-run manifests as a silent redirect
// there, so this check is the only reliable invalidation signal.
func IsLoginLocation(location string) bool {
	return strings.Contains(location, loginPathSegment)
}

// ValidateSession probes an authenticated-only page and reports whether
// the session still holds. On success it tries to put the page back where
// it was; failing to return is logged and ignored. Recovery is the
// caller's job, this only reports.
func ValidateSession(ctx context.Context, b browser.Browser, probeUrl string) (bool, error) {
	ctx, span := tracer.Start(ctx, "ValidateSession")
	defer span.End()

	original, err := b.Location(ctx)
	if err != nil {
		original = ""
	}

	if err := b.Navigate(ctx, probeUrl); err != nil {
		return false, spanErr(span, err)
	}
	location, err := b.Location(ctx)
	if err != nil {
		return false, spanErr(span, err)
	}

	valid := !IsLoginLocation(location)
	if valid && original != "" && original != location {
		if err := b.Navigate(ctx, original); err != nil {
			slog.WarnContext(ctx, "could not return to pre-probe location",
				"location", original, "err", err)
		}
	}
	return valid, nil
}

// ValidateSession probes the scraper's configured probe page.
func (s *Scraper) ValidateSession(ctx context.Context) (bool, error) {
	return ValidateSession(ctx, s.browser, s.config.probeUrl())
}
