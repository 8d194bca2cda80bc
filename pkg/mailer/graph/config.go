package graph

// Config holds Microsoft Graph settings for draft uploads.
type Config struct {
	TenantID     string `env:"GRAPH_TENANT_ID"`
	ClientID     string `env:"GRAPH_CLIENT_ID"`
	ClientSecret string `env:"GRAPH_CLIENT_SECRET"` // empty selects the device code flow
	Mailbox      string `env:"GRAPH_MAILBOX"`
	BaseURL      string `env:"GRAPH_BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`
	AuthorityURL string `env:"GRAPH_AUTHORITY_URL" envDefault:"https://login.microsoftonline.com"`
	SpacingHack  bool   `env:"GRAPH_OUTLOOK_SPACING_HACK" envDefault:"true"`
}
