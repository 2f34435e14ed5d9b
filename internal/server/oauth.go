package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/desertthunder/crate/internal/shared"
	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for a token. Both [oauth2.Config] and the Spotify authenticator
// satisfy it.
type Exchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// CallbackResult is the outcome of the one redirect a [Callback] accepts.
type CallbackResult struct {
	Token *oauth2.Token
	Err   error
}

// callbackError carries the HTTP status shown to the browser alongside the error reported to the CLI.
type callbackError struct {
	status int
	err    error
}

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// Callback receives the authorization redirect for one login attempt.
//
// Only the first GET on its path is processed; later requests are refused so a leaked redirect URL cannot be
// replayed against the running login.
type Callback struct {
	exchanger Exchanger
	state     string
	path      string
	handled   atomic.Bool
	results   chan CallbackResult
}

// NewCallback creates the callback for state, served on the path of redirectURI.
func NewCallback(exchanger Exchanger, state, redirectURI string) (*Callback, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect_uri %q: %v", shared.ErrInvalidConfig, redirectURI, err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return &Callback{
		exchanger: exchanger,
		state:     state,
		path:      path,
		results:   make(chan CallbackResult, 1),
	}, nil
}

// Path is the URL path the authorization server redirects to.
func (c *Callback) Path() string { return c.path }

// Done delivers exactly one result.
func (c *Callback) Done() <-chan CallbackResult { return c.results }

func (c *Callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !c.handled.CompareAndSwap(false, true) {
		http.Error(w, "login already completed", http.StatusConflict)
		return
	}

	token, err := c.exchange(r)
	c.results <- CallbackResult{Token: token, Err: err}

	if err != nil {
		status := http.StatusInternalServerError
		var cbErr *callbackError
		if errors.As(err, &cbErr) {
			status = cbErr.status
		}
		http.Error(w, "Authorization failed: "+err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, successPage)
}

func (c *Callback) exchange(r *http.Request) (*oauth2.Token, error) {
	query := r.URL.Query()
	if query.Get("state") != c.state {
		return nil, &callbackError{http.StatusBadRequest, errors.New("state mismatch")}
	}

	code := query.Get("code")
	if code == "" {
		reason := query.Get("error")
		if reason == "" {
			reason = "no code in redirect"
		}
		return nil, &callbackError{http.StatusBadRequest, fmt.Errorf("denied: %s", reason)}
	}

	token, err := c.exchanger.Exchange(r.Context(), code)
	if err != nil {
		return nil, &callbackError{http.StatusBadGateway, fmt.Errorf("token exchange: %w", err)}
	}
	return token, nil
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>crate</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1 style="color: #7D56F4">✓ Spotify connected</h1>
<p>You can close this tab and return to the terminal.</p>
</body>
</html>
`
