package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const graphScope = "https://graph.microsoft.com"

func tenantURL(cfg Config, path string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/%s", strings.TrimRight(cfg.AuthorityURL, "/"), cfg.TenantID, path)
}

// ClientCredentials returns an HTTP client authenticated as the application.
// Requests must address the mailbox as /users/{mailbox}.
func ClientCredentials(ctx context.Context, cfg Config) (*http.Client, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" {
		return nil, ErrMissingCredentials
	}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tenantURL(cfg, "token"),
		Scopes:       []string{graphScope + "/.default"},
	}
	return creds.Client(ctx), nil
}

// DeviceCode runs the OAuth device authorization flow for a signed-in user.
// prompt receives the verification URL and user code to show; the call
// blocks until the user completes sign-in or ctx is done.
func DeviceCode(ctx context.Context, cfg Config, prompt func(*oauth2.DeviceAuthResponse)) (*http.Client, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" {
		return nil, ErrMissingCredentials
	}
	conf := &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:       tenantURL(cfg, "authorize"),
			TokenURL:      tenantURL(cfg, "token"),
			DeviceAuthURL: tenantURL(cfg, "devicecode"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		Scopes: []string{
			graphScope + "/Mail.ReadWrite",
			graphScope + "/User.Read",
			"offline_access",
		},
	}

	resp, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: device authorization: %w", err)
	}
	if prompt != nil {
		prompt(resp)
	}

	tok, err := conf.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("graph: device token: %w", err)
	}
	return conf.Client(ctx, tok), nil
}
