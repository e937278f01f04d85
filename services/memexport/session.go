package memexport

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"memexporter/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotLoggedIn is a user-actionable condition, distinct from
// extraction failures: the fix is logging in, not retrying.
var ErrNotLoggedIn = errors.New("not logged in")

// SessionProvider hands the core an authenticated page. The core
// never touches credentials itself.
type SessionProvider interface {
	IsAuthenticated(ctx context.Context) bool
	EstablishSession(ctx context.Context) error
}

// markers of an authenticated dashboard vs a login prompt
var authenticatedMarkers = `a[href*="/dashboard"], [class*="avatar"], [class*="user-menu"], [class*="profile"]`

var loginMarkers = `a[href*="login"], a[href*="auth"], a[href*="discord"]`

var loginButtonTexts = []string{"login", "log in", "sign in"}

// BrowserSession detects login state from page markers and, when a
// session is missing, opens the login flow and waits for the user to
// complete it interactively. The oauth dance itself is the user's
// job, scripted credentials don't survive the provider's bot checks.
type BrowserSession struct {
	page    browser.Page
	baseURL string
	// how long to wait for an interactive login, default 5 minutes
	Timeout time.Duration
}

func NewBrowserSession(page browser.Page, baseURL string) *BrowserSession {
	return &BrowserSession{
		page:    page,
		baseURL: baseURL,
		Timeout: time.Minute * 5,
	}
}

func (s *BrowserSession) IsAuthenticated(ctx context.Context) bool {
	html, err := s.page.HTML(ctx)
	if err != nil {
		return false
	}
	return pageLooksAuthenticated(html)
}

func pageLooksAuthenticated(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	if doc.Find(authenticatedMarkers).Length() == 0 {
		return false
	}
	// a login prompt on screen beats any stale dashboard chrome
	return !hasLoginPrompt(doc)
}

func hasLoginPrompt(doc *goquery.Document) bool {
	found := false
	doc.Find("a, button").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(el.Text()))
		for _, marker := range loginButtonTexts {
			if text == marker {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// EstablishSession navigates to the site, opens the login flow when a
// prompt is present, then polls until authenticated markers appear or
// the timeout lapses.
func (s *BrowserSession) EstablishSession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:Establish")
	defer span.End()

	err := s.page.Navigate(ctx, s.baseURL)
	if err != nil {
		return err
	}

	if s.IsAuthenticated(ctx) {
		slog.InfoContext(ctx, "existing session detected")
		return nil
	}

	s.clickLoginControl(ctx)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = time.Minute * 5
	}
	slog.InfoContext(ctx, "waiting for interactive login", "timeout", timeout)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.IsAuthenticated(ctx) {
			slog.InfoContext(ctx, "login detected")
			return nil
		}
		time.Sleep(time.Second * 2)
	}
	return ErrNotLoggedIn
}

func (s *BrowserSession) clickLoginControl(ctx context.Context) {
	probes := []browser.Selector{
		{Name: "login link", Kind: browser.KindCSS, Value: loginMarkers},
		{Name: "login text", Kind: browser.KindTextContains, Value: "Login"},
		{Name: "sign in text", Kind: browser.KindTextContains, Value: "Sign in"},
	}
	for _, probe := range probes {
		elements, err := s.page.Find(ctx, probe)
		if err != nil || len(elements) == 0 {
			continue
		}
		err = s.page.Click(ctx, elements[0])
		if err == nil {
			slog.DebugContext(ctx, "opened login flow", "probe", probe.Name)
			return
		}
	}
	// no prompt found, the user may already be mid-login in the
	// opened window
	slog.DebugContext(ctx, "no login control found")
}
