package main

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/crate/internal/server"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

const defaultAuthTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization and stores the exchanged token in the
// config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	auth, err := services.NewAuthenticator(creds.Map())
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	redirectURI := cmp.Or(creds.RedirectURI, services.DefaultRedirectURI)
	callback, err := server.NewCallback(auth, state, redirectURI)
	if err != nil {
		return err
	}

	authURL := auth.AuthURL(state)
	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	timeout := cmd.Duration("timeout")

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)
	token, err := server.AwaitToken(ctx, addr, callback, timeout, shared.WithLogger(r.logger, "component", "oauth"))
	if err != nil {
		return err
	}

	if err := r.saveToken(token); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Authorization successful"))
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n", r.configPath)
	}
	return nil
}

// AuthStatus reports whether a token is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		r.writePlain("%s\n", ui.Styles.Warn("Not authenticated. Run 'crate auth login'."))
		return nil
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Token stored"))
	switch {
	case token.Expiry.IsZero():
		r.writePlain("Expiry: unknown\n")
	case token.Expiry.Before(time.Now()):
		r.writePlain("Access token expired %s\n", humanize.Time(token.Expiry))
	default:
		r.writePlain("Access token expires %s\n", humanize.Time(token.Expiry))
	}
	if token.RefreshToken == "" {
		r.writePlain("%s\n", ui.Styles.Warn("No refresh token: you will need to log in again once it expires."))
	}
	return nil
}
