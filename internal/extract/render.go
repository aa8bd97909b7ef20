package extract

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"yjkwon/offerharvester/helpers"
	"yjkwon/offerharvester/internal/market"
	errs "yjkwon/offerharvester/pkg/errors"
)

// Renderer is the single browser-specific seam: given a URL and a market
// context it produces a page snapshot. Everything past the snapshot is
// library-independent.
type Renderer interface {
	Render(ctx context.Context, pageURL string, mctx *market.Context) (*Snapshot, error)
	Close() error
}

// Selectors for collapsed content panels that hide product facts behind a
// click (usage, ingredients and similar accordions).
var accordionTriggerSelectors = []string{
	"[aria-expanded='false'][aria-controls]",
	"details:not([open]) > summary",
	".accordion__toggle",
	".accordion-trigger",
}

// RodRenderer drives a headless Chromium via go-rod. The browser is launched
// lazily on first use; each visit gets its own page, torn down when the visit
// ends regardless of outcome.
type RodRenderer struct {
	mu            sync.Mutex
	browser       *rod.Browser
	launchTimeout time.Duration
	navTimeout    time.Duration
	headless      bool
}

// NewRodRenderer creates a renderer with launch and navigation timeouts.
func NewRodRenderer(launchTimeout, navTimeout time.Duration, headless bool) *RodRenderer {
	return &RodRenderer{launchTimeout: launchTimeout, navTimeout: navTimeout, headless: headless}
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	var browser *rod.Browser
	err := rod.Try(func() {
		controlURL := launcher.New().
			Headless(r.headless).
			NoSandbox(true).
			MustLaunch()
		browser = detachLaunchDeadline(rod.New().
			ControlURL(controlURL).
			Timeout(r.launchTimeout).
			MustConnect())
	})
	if err != nil {
		return nil, errs.NewRender("", "", "browser launch failed", err)
	}
	r.browser = browser
	return browser, nil
}

// detachLaunchDeadline removes the connect deadline before the browser is
// cached. The deadline scopes connecting only; a cached browser still carrying
// it would reject every page opened after launchTimeout elapses.
func detachLaunchDeadline(b *rod.Browser) *rod.Browser {
	return b.CancelTimeout()
}

// Render navigates to pageURL with the market overlay injected into the
// browser context, expands collapsed panels and snapshots the settled DOM.
func (r *RodRenderer) Render(ctx context.Context, pageURL string, mctx *market.Context) (*Snapshot, error) {
	browser, err := r.connect()
	if err != nil {
		return nil, err
	}

	target := mctx.ApplyURLParams(pageURL)

	var page *rod.Page
	if err := rod.Try(func() {
		page = stealth.MustPage(browser)
	}); err != nil {
		return nil, errs.NewRender("", mctx.MarketID(), "page creation failed", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(r.navTimeout)

	if err := r.injectMarket(page, target, mctx); err != nil {
		return nil, err
	}

	var html string
	renderErr := rod.Try(func() {
		page.MustNavigate(target)
		page.MustWaitLoad()
		r.expandAccordions(page)
		html = page.MustHTML()
	})
	if renderErr != nil {
		return nil, errs.NewRender("", mctx.MarketID(), "navigation failed for "+target, renderErr)
	}

	finalURL := target
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return ParseSnapshot(html, finalURL)
}

func (r *RodRenderer) injectMarket(page *rod.Page, target string, mctx *market.Context) error {
	headers := mctx.Headers()
	if len(headers) > 0 {
		dict := make([]string, 0, len(headers)*2)
		for k, v := range headers {
			dict = append(dict, k, v)
		}
		if _, err := page.SetExtraHeaders(dict); err != nil {
			return errs.NewRender("", mctx.MarketID(), "header injection failed", err)
		}
	}

	cookies := mctx.Cookies()
	if len(cookies) > 0 {
		parsed, err := url.Parse(target)
		if err != nil {
			return errs.NewRender("", mctx.MarketID(), "cookie injection failed, unparseable url "+target, err)
		}
		params := make([]*proto.NetworkCookieParam, 0, len(cookies))
		for name, value := range cookies {
			params = append(params, &proto.NetworkCookieParam{
				Name:   name,
				Value:  value,
				Domain: parsed.Hostname(),
				Path:   "/",
			})
		}
		if err := page.SetCookies(params); err != nil {
			return errs.NewRender("", mctx.MarketID(), "cookie injection failed", err)
		}
	}
	return nil
}

// expandAccordions clicks collapsed-panel triggers so hidden product facts
// end up in the captured DOM. Failures on individual triggers are ignored.
func (r *RodRenderer) expandAccordions(page *rod.Page) {
	for _, selector := range accordionTriggerSelectors {
		elements, err := page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			_ = rod.Try(func() {
				el.MustClick()
			})
		}
	}
}

// Close shuts the shared browser down, releasing the OS process.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

// FetchRenderer obtains pages with a plain HTTP GET, no script execution.
// Used when the browser is disabled and as the test seam.
type FetchRenderer struct {
	fetcher *helpers.Fetcher
}

// NewFetchRenderer wraps a Fetcher as a Renderer.
func NewFetchRenderer(fetcher *helpers.Fetcher) *FetchRenderer {
	return &FetchRenderer{fetcher: fetcher}
}

// Render fetches the page body and parses a snapshot from the static markup.
func (f *FetchRenderer) Render(ctx context.Context, pageURL string, mctx *market.Context) (*Snapshot, error) {
	body, err := f.fetcher.Fetch(ctx, pageURL, mctx)
	if err != nil {
		return nil, err
	}
	return ParseSnapshot(string(body), mctx.ApplyURLParams(pageURL))
}

// Close is a no-op; the underlying client holds no OS resources.
func (f *FetchRenderer) Close() error {
	return nil
}
