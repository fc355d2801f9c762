// Package browser defines the small set of page capabilities the scraping
// code depends on. Scrapers never see DOM selectors' backing engine; they
// get "navigate", "read text", "click" and nothing else, so the volatile
// automation details stay behind this boundary.
package browser

import "context"

// Browser is a single authenticated page context. Implementations are not
// safe for concurrent use; one extraction owns the page at a time.
type Browser interface {
	// Navigate loads url and waits for the content to load.
	Navigate(ctx context.Context, url string) error
	// Location returns the current navigable location.
	Location(ctx context.Context) (string, error)
	// Text returns the rendered text of the first element matching the
	// selector. It fails when no such element appears within the
	// implementation's timeout.
	Text(ctx context.Context, selector string) (string, error)
	// HTML returns the outer HTML of the first element matching the
	// selector.
	HTML(ctx context.Context, selector string) (string, error)
	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// ClickLinkText clicks the anchor whose rendered text equals text.
	// It reports false, with no error, when no such anchor exists.
	ClickLinkText(ctx context.Context, text string) (bool, error)
	// SelectLastOption picks the final option of the select control
	// matching the selector and returns that option's rendered text.
	SelectLastOption(ctx context.Context, selector string) (string, error)
	// Fill types value into the first element matching the selector.
	Fill(ctx context.Context, selector string, value string) error
	// WaitLoad blocks until the current document finishes loading.
	WaitLoad(ctx context.Context) error
}
