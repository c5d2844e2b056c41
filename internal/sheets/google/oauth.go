package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNoOAuthClient is returned when no OAuth client credentials are configured.
var ErrNoOAuthClient = errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")

// OAuthConfigFromEnv builds the OAuth client config for the Sheets scope from
// GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	b, err := readJSONOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNoOAuthClient
	}
	cfg, err := googleoauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenFile is where the authorized user token is stored.
func TokenFile() string {
	if p := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")); p != "" {
		return p
	}
	return "token.json"
}

// SaveToken writes tok to path readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// oauthTokenSource returns a refreshing token source for an authorized user.
// ok is false when no OAuth client is configured, in which case the caller
// falls back to service account credentials.
func oauthTokenSource(ctx context.Context) (ts oauth2.TokenSource, ok bool, err error) {
	cfg, err := OAuthConfigFromEnv()
	if errors.Is(err, ErrNoOAuthClient) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}

	b, err := readJSONOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, true, err
	}
	if b == nil {
		return nil, true, errors.New("set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE (run ledger-sheets-auth)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, true, fmt.Errorf("parse oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), true, nil
}

// readJSONOrFile returns the inline value of jsonKey, else the contents of
// the file named by fileKey, else nil.
func readJSONOrFile(jsonKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonKey)); v != "" {
		return []byte(v), nil
	}
	path := strings.TrimSpace(os.Getenv(fileKey))
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileKey, err)
	}
	return b, nil
}
