package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const youtubeReadonlyScope = "https://www.googleapis.com/auth/youtube.readonly"

// OAuthCredential builds an OAuth-backed pool credential from a client id,
// secret and a token file produced by an earlier interactive authorization.
// The collector runs headless, so the token file must already exist and
// carry a refresh token; refreshed tokens are written back to the file.
func OAuthCredential(id, clientID, clientSecret, tokenFile string) (*Credential, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{youtubeReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth token from %s (authorize interactively first): %w", tokenFile, err)
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, fmt.Errorf("token in %s is expired and has no refresh token", tokenFile)
	}

	return &Credential{
		ID: id,
		TokenSource: &savingTokenSource{
			config:    conf,
			token:     token,
			tokenFile: tokenFile,
		},
	}, nil
}

// savingTokenSource refreshes through the oauth2 config and writes any new
// token back to disk so refreshes survive restarts.
type savingTokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex
}

func (ts *savingTokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			log.Printf("Warning: failed to save refreshed token: %v", err)
		}
	}
	return newToken, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to write token file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}
