package memexport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const dashboardHTML = `<html><body>
	<nav>
		<a href="/dashboard">Dashboard</a>
		<div class="avatar_x2"><img src="/me.png"></div>
	</nav>
</body></html>`

const loginPageHTML = `<html><body>
	<h1>Welcome back</h1>
	<a href="/auth/discord">Login</a>
</body></html>`

func TestPageLooksAuthenticated(t *testing.T) {
	require.True(t, pageLooksAuthenticated(dashboardHTML))
	require.False(t, pageLooksAuthenticated(loginPageHTML))
	require.False(t, pageLooksAuthenticated("<html><body><p>nothing here</p></body></html>"))
}

func TestPageLooksAuthenticatedLoginPromptWins(t *testing.T) {
	// stale dashboard chrome plus a login prompt means logged out
	html := `<html><body>
		<a href="/dashboard">Dashboard</a>
		<button>Sign in</button>
	</body></html>`
	require.False(t, pageLooksAuthenticated(html))
}

func TestEstablishSessionExistingSession(t *testing.T) {
	page := newFakePage(fakeView{html: dashboardHTML})
	session := NewBrowserSession(page, "https://shapes.inc")

	err := session.EstablishSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"https://shapes.inc"}, page.navigates)
}

func TestEstablishSessionTimesOut(t *testing.T) {
	page := newFakePage(fakeView{html: loginPageHTML})
	session := NewBrowserSession(page, "https://shapes.inc")
	session.Timeout = time.Millisecond

	err := session.EstablishSession(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestEstablishSessionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := newFakePage(fakeView{html: loginPageHTML})
	session := NewBrowserSession(page, "https://shapes.inc")
	session.Timeout = time.Minute

	err := session.EstablishSession(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
