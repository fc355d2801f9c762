package browser

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/browser")

type Config struct {
	// attach to an existing browser instead of launching one
	DebuggerURL string `json:"debugger_url"`
	Headless    bool   `json:"headless"`
	// per-operation budget; a selector that doesn't resolve within it
	// fails the operation
	TimeoutMs int `json:"timeout_ms"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Rod drives a single Chromium page through go-rod.
type Rod struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

var _ Browser = (*Rod)(nil)

func NewRod(ctx context.Context, config Config) (*Rod, error) {
	controlURL := config.DebuggerURL
	if controlURL == "" {
		var err error
		controlURL, err = launcher.New().
			Headless(config.Headless).
			Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Rod{
		browser: b,
		page:    page,
		timeout: config.timeout(),
	}, nil
}

func (r *Rod) Close() error {
	return r.browser.Close()
}

func (r *Rod) bounded(ctx context.Context) *rod.Page {
	return r.page.Context(ctx).Timeout(r.timeout)
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "rod:Navigate")
	defer span.End()

	page := r.bounded(ctx)
	if err := page.Navigate(url); err != nil {
		span.RecordError(err)
		return err
	}
	return page.WaitLoad()
}

func (r *Rod) Location(ctx context.Context) (string, error) {
	info, err := r.bounded(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (r *Rod) Text(ctx context.Context, selector string) (string, error) {
	el, err := r.bounded(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("element %q: %w", selector, err)
	}
	return el.Text()
}

func (r *Rod) HTML(ctx context.Context, selector string) (string, error) {
	el, err := r.bounded(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("element %q: %w", selector, err)
	}
	return el.HTML()
}

func (r *Rod) Click(ctx context.Context, selector string) error {
	el, err := r.bounded(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element %q: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (r *Rod) ClickLinkText(ctx context.Context, text string) (bool, error) {
	ctx, span := tracer.Start(ctx, "rod:ClickLinkText")
	defer span.End()

	page := r.bounded(ctx)
	has, el, err := page.HasR("a", fmt.Sprintf(`^\s*%s\s*$`, regexp.QuoteMeta(text)))
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if !has {
		return false, nil
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		span.RecordError(err)
		return false, err
	}
	return true, nil
}

func (r *Rod) SelectLastOption(ctx context.Context, selector string) (string, error) {
	el, err := r.bounded(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("element %q: %w", selector, err)
	}
	obj, err := el.Eval(`() => {
		const last = this.options[this.options.length - 1];
		this.value = last.value;
		this.dispatchEvent(new Event("change", { bubbles: true }));
		return last.textContent;
	}`)
	if err != nil {
		return "", err
	}
	return obj.Value.Str(), nil
}

func (r *Rod) Fill(ctx context.Context, selector string, value string) error {
	el, err := r.bounded(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element %q: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (r *Rod) WaitLoad(ctx context.Context) error {
	return r.bounded(ctx).WaitLoad()
}
