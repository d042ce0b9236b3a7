package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/semmidev/drupal-archive/internal/adapter/storage"
)

type AuthLogger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// GDriveAuthorizer runs the OAuth consent flow for a gdrive upload target and
// hands back the refresh token to put in its configuration.
type GDriveAuthorizer struct {
	config *oauth2.Config
	logger AuthLogger
	state  string
	tokens chan *oauth2.Token
	server *http.Server
}

func NewGDriveAuthorizer(clientSecretPath string, logger AuthLogger) (*GDriveAuthorizer, error) {
	if clientSecretPath == "" {
		return nil, errors.New("client secret path cannot be empty")
	}

	cfg, err := storage.LoadOAuthConfig(clientSecretPath)
	if err != nil {
		return nil, err
	}

	return newGDriveAuthorizer(cfg, logger), nil
}

func newGDriveAuthorizer(cfg *oauth2.Config, logger AuthLogger) *GDriveAuthorizer {
	return &GDriveAuthorizer{
		config: cfg,
		logger: logger,
		state:  uuid.NewString(),
		tokens: make(chan *oauth2.Token, 1),
	}
}

// Handler serves the consent redirect and the OAuth callback.
func (a *GDriveAuthorizer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/drive", func(w http.ResponseWriter, r *http.Request) {
		authURL := a.config.AuthCodeURL(a.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != a.state {
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := a.config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		if token.RefreshToken == "" {
			fmt.Fprintln(w, "No refresh token returned. Revoke the app's access and authorize again.")
			return
		}

		select {
		case a.tokens <- token:
		default:
		}
		fmt.Fprintln(w, "Authorization complete, you can close this window and return to the terminal.")
	})

	return mux
}

// Authorize listens on addr and blocks until a refresh token arrives or ctx
// ends. The URL to open is passed to prompt once the listener is ready.
func (a *GDriveAuthorizer) Authorize(ctx context.Context, addr string, prompt func(url string)) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	base := "http://" + listener.Addr().String()
	a.config.RedirectURL = base + "/auth/google/callback"

	a.server = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Infof("Google Drive OAuth server listening on %s", base)
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf("OAuth server error: %v", err)
		}
	}()
	defer a.shutdown()

	prompt(base + "/auth/google/drive")

	select {
	case token := <-a.tokens:
		return token.RefreshToken, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *GDriveAuthorizer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Errorf("failed to shutdown OAuth server: %v", err)
		return
	}
	a.logger.Infof("OAuth server stopped")
}
