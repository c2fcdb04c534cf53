package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tapdeck/tapdeck/internal/auth"
	"github.com/tapdeck/tapdeck/internal/server"
	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 authorization-code flow.
//
// Default mode starts a local HTTP server and opens the browser; manual
// mode prints the URL and asks the operator to paste the redirect URL.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.connect(); err != nil {
		return err
	}

	var creds *auth.Credentials
	var err error

	if cmd.Bool("manual") {
		creds, err = r.manualAuth(ctx)
	} else {
		creds, err = r.capturedAuth(ctx)
	}
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n", r.store.Path())
	r.writePlain("  Scopes: %s\n", strings.Join(creds.Scopes, " "))
	r.writePlain("\nYou can now use: tapdeck serve\n")

	return nil
}

// AuthStatus reports whether a usable credential record exists.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.connect(); err != nil {
		return err
	}

	creds, err := r.store.Load()
	if errors.Is(err, shared.ErrNotAuthorized) {
		r.writePlain("✗ Not authorized\n")
		r.writePlain("Run: tapdeck auth login\n")
		return nil
	}
	if err != nil {
		return err
	}

	r.writePlain("✓ Authorized\n")
	r.writePlain("  Credential file: %s\n", r.store.Path())
	r.writePlain("  Scopes: %s\n", strings.Join(creds.Scopes, " "))

	if creds.Fresh(time.Now(), auth.RefreshMargin) {
		r.writePlain("  Access token: valid until %s\n", creds.Expiry.Format(time.RFC1123))
	} else {
		r.writePlain("  Access token: expired (will refresh on next use)\n")
	}

	return nil
}

// AuthLogout deletes the stored credential record.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.connect(); err != nil {
		return err
	}

	if err := r.store.Delete(); err != nil {
		return err
	}

	r.writePlain("✓ Credentials deleted\n")
	return nil
}

// capturedAuth runs the authorization flow with a local callback server.
// The callback handler exchanges the code itself, so the result carries
// a complete token.
func (r *Runner) capturedAuth(ctx context.Context) (*auth.Credentials, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	authURL := r.authorizer.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(r.authorizer.Config(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		httpServer.Close()
		return nil, ctx.Err()
	case <-timeout.C:
		httpServer.Close()
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down callback server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	creds := auth.FromToken(result.Token, auth.Scopes)
	if err := r.store.Save(creds); err != nil {
		return nil, err
	}

	return creds, nil
}

// manualAuth runs the headless flow: the operator authorizes in any
// browser and pastes the full redirect URL back into the terminal.
func (r *Runner) manualAuth(ctx context.Context) (*auth.Credentials, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	r.writePlainHeader("SPOTIFY AUTHORIZATION REQUIRED")
	r.writePlain("\nStep 1: Visit this URL in your browser:\n\n%s\n\n", r.authorizer.AuthURL(state))
	r.writePlain("Step 2: Authorize the application\n")
	r.writePlain("Step 3: Copy the ENTIRE redirect URL from the address bar\n\n")
	r.writePlain("Paste the redirect URL here: ")

	scanner := bufio.NewScanner(r.input)
	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: no redirect URL provided", shared.ErrMissingArgument)
	}

	code, err := parseRedirectURL(strings.TrimSpace(scanner.Text()), state)
	if err != nil {
		return nil, err
	}

	return r.authorizer.Exchange(ctx, code)
}

// parseRedirectURL extracts the authorization code from a pasted
// redirect URL and verifies the state parameter.
func parseRedirectURL(redirect, state string) (string, error) {
	parsed, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("%w: could not parse redirect URL: %v", shared.ErrInvalidArgument, err)
	}

	query := parsed.Query()

	if errParam := query.Get("error"); errParam != "" {
		return "", fmt.Errorf("%w: %s", shared.ErrAuthFailed, errParam)
	}

	if gotState := query.Get("state"); gotState != "" && gotState != state {
		return "", fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: redirect URL has no code parameter", shared.ErrInvalidArgument)
	}

	return code, nil
}
