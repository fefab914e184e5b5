// Command get_token runs the OAuth2 consent flow and prints a refresh token for
// IMAP XOAUTH access to the lead mailbox.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

func main() {
	clientID := os.Getenv("IMAP_OAUTH_CLIENT_ID")
	clientSecret := os.Getenv("IMAP_OAUTH_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		logrus.Fatal("IMAP_OAUTH_CLIENT_ID and IMAP_OAUTH_CLIENT_SECRET must be set")
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{gmail.MailGoogleComScope},
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://localhost:8080/callback",
	}

	fmt.Printf("Open this link and approve mailbox access:\n%s\n", cfg.AuthCodeURL("lead-intake", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	fmt.Print("\nPaste the 'code' parameter from the redirect URL: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		logrus.Fatalf("Failed to read authorization code: %v", err)
	}

	tok, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		logrus.Fatalf("Failed to exchange authorization code: %v", err)
	}
	if tok.RefreshToken == "" {
		logrus.Fatal("No refresh token returned; revoke the app's access and retry")
	}

	fmt.Printf("\nexport IMAP_OAUTH_REFRESH_TOKEN=%q\n", tok.RefreshToken)
}
