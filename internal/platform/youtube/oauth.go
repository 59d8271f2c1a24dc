package youtube

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/tubeseo-agent/internal/models"
)

// generateState creates a random state parameter for the OAuth flow.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthURL returns the consent page URL for the given state. Offline access
// is requested so a refresh token is issued.
func (f *Factory) AuthURL(state string) string {
	return f.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a token and stores it for
// the user.
func (f *Factory) ExchangeCode(ctx context.Context, userID, code string) error {
	token, err := f.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	stored := &models.OAuthToken{UserID: userID}
	stored.FromOAuth2Token(token)
	if err := f.repo.SaveToken(ctx, stored); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	f.log.Info().Str("user_id", userID).Msg("OAuth token stored")
	return nil
}

// Authorize runs a temporary HTTP server for the OAuth callback and stores
// the resulting token for the user. Returns the consent URL to open.
func (f *Factory) Authorize(ctx context.Context, userID string, port int) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}

	f.oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	authURL := f.AuthURL(state)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errChan <- fmt.Errorf("state mismatch")
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}

		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			errChan <- fmt.Errorf("oauth error: %s", errMsg)
			http.Error(w, errMsg, http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			http.Error(w, "No code", http.StatusBadRequest)
			return
		}

		codeChan <- code

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `
			<html>
			<body style="font-family: sans-serif; text-align: center; padding: 50px;">
				<h1>Authorization Successful</h1>
				<p>You can close this window and return to the terminal.</p>
			</body>
			</html>
		`)
	})

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	f.log.Info().
		Str("url", authURL).
		Int("port", port).
		Msg("OAuth server started, waiting for callback")

	select {
	case code := <-codeChan:
		server.Shutdown(ctx)
		return authURL, f.ExchangeCode(ctx, userID, code)
	case err := <-errChan:
		server.Shutdown(ctx)
		return authURL, err
	case <-ctx.Done():
		server.Shutdown(context.Background())
		return authURL, ctx.Err()
	}
}
