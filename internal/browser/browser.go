// Package browser drives headless Chrome to render X pages and capture logins.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/mfenderov/clipmd/internal/auth"
	"github.com/mfenderov/clipmd/internal/config"
)

// LoginURL is where interactive login starts.
const LoginURL = "https://x.com/login"

// sessionCookie is set by X only for authenticated sessions.
const sessionCookie = "auth_token"

var loggedInLocation = regexp.MustCompile(`x\.com/(home|[^/]+$)`)

const loginPollInterval = time.Second

// Browser owns a Chrome process and its root tab.
// Callers must Close it; Close is safe to call more than once.
type Browser struct {
	cfg         config.Browser
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// New launches Chrome according to cfg.
func New(ctx context.Context, cfg config.Browser) (*Browser, error) {
	return start(ctx, cfg)
}

func start(ctx context.Context, cfg config.Browser, extra ...chromedp.ExecAllocatorOption) (*Browser, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	opts = append(opts, extra...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	bctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
	}))

	// An empty Run starts the browser and its first tab.
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Browser{cfg: cfg, ctx: bctx, cancel: cancel, allocCancel: allocCancel}, nil
}

// Close shuts Chrome down and releases its resources.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		if err := chromedp.Cancel(b.ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
		b.cancel()
		b.allocCancel()
	})
	return b.closeErr
}

// Render opens url in a new tab with cookies applied, waits for the article
// element and returns the full page HTML.
func (b *Browser) Render(ctx context.Context, url string, cookies []auth.Cookie) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.ctx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	// The first Run on a tab context creates the tab; keep it free of
	// timeouts so a deadline does not close the target.
	if err := chromedp.Run(tabCtx, setCookies(cookies)); err != nil {
		return "", fmt.Errorf("failed to set cookies: %w", err)
	}

	navCtx, cancel := withTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancel()
	slog.Debug("navigating", "url", url)
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	waitCtx, cancelWait := withTimeout(tabCtx, b.cfg.ArticleTimeout)
	defer cancelWait()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("article", chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("article content did not load: %w", err)
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return html, nil
}

// Login opens a visible browser at the X login page and waits until the user
// has signed in, then returns the session cookies.
// cfg.ProfileDir, when set, reuses an existing Chrome profile.
func Login(ctx context.Context, cfg config.Browser) ([]auth.Cookie, error) {
	cfg.Headless = false
	var extra []chromedp.ExecAllocatorOption
	if cfg.ProfileDir != "" {
		extra = append(extra, chromedp.UserDataDir(cfg.ProfileDir))
	}

	b, err := start(ctx, cfg, extra...)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := chromedp.Run(b.ctx, chromedp.Navigate(LoginURL)); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}

	loginCtx, cancel := withTimeout(b.ctx, cfg.LoginTimeout)
	defer cancel()

	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-loginCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("login not completed within %s", cfg.LoginTimeout)
		case <-ticker.C:
		}

		cookies, done, err := b.loginState()
		if err != nil {
			slog.Debug("login poll failed", "error", err)
			continue
		}
		if done {
			return cookies, nil
		}
	}
}

// loginState reports whether the tab has landed on a signed-in page and
// returns the current cookies when it has.
func (b *Browser) loginState() ([]auth.Cookie, bool, error) {
	var location string
	if err := chromedp.Run(b.ctx, chromedp.Location(&location)); err != nil {
		return nil, false, err
	}
	if !loggedInLocation.MatchString(location) {
		return nil, false, nil
	}

	var raw []*network.Cookie
	err := chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, false, err
	}

	cookies := fromNetwork(raw)
	// x.com/login itself matches the location pattern.
	if !hasCookie(cookies, sessionCookie) {
		return nil, false, nil
	}
	return cookies, true, nil
}

func setCookies(cookies []auth.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(cookies) == 0 {
			return nil
		}
		return network.SetCookies(toNetwork(cookies)).Do(ctx)
	})
}

func toNetwork(cookies []auth.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if p.Path == "" {
			p.Path = "/"
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &expires
		}
		switch ss := network.CookieSameSite(c.SameSite); ss {
		case network.CookieSameSiteStrict, network.CookieSameSiteLax, network.CookieSameSiteNone:
			p.SameSite = ss
		}
		params = append(params, p)
	}
	return params
}

func fromNetwork(raw []*network.Cookie) []auth.Cookie {
	cookies := make([]auth.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, auth.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cookies
}

func hasCookie(cookies []auth.Cookie, name string) bool {
	for _, c := range cookies {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
