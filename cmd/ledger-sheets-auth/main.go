// Command ledger-sheets-auth runs the OAuth consent flow once and stores the
// user token that the worker uses to export to Google Sheets.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"ledger/internal/cli"
	applog "ledger/internal/log"
	gsheet "ledger/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentSheets, nil)

	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load OAuth client", applog.FieldError, err)
		os.Exit(1)
	}

	// The OAuth client must list this redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	mux.HandleFunc("GET /callback", callbackHandler(state, codeCh))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Callback server failed", applog.FieldError, err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			logger.Error("Token exchange failed", applog.FieldError, err)
			os.Exit(1)
		}
		path := gsheet.TokenFile()
		if err := gsheet.SaveToken(path, tok); err != nil {
			logger.Error("Failed to save token", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Saved OAuth token", "path", path)
	case <-time.After(5 * time.Minute):
		logger.Error("Authorization timed out")
		os.Exit(1)
	case <-sig:
		logger.Warn("Interrupted")
		os.Exit(1)
	}
}

// callbackHandler accepts the redirect only when it echoes state, and hands
// the first authorization code to codeCh.
func callbackHandler(state string, codeCh chan<- string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	}
}
