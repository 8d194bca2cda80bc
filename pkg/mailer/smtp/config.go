package smtp

// Config holds SMTP transport configuration.
// Defaults target Microsoft 365 submission on port 587 with STARTTLS.
type Config struct {
	Host        string `env:"SMTP_HOST" envDefault:"smtp-mail.outlook.com"`
	Port        int    `env:"SMTP_PORT" envDefault:"587"`
	Username    string `env:"SMTP_USERNAME"`
	Password    string `env:"SMTP_PASSWORD"`
	TLSPolicy   string `env:"SMTP_TLS_POLICY" envDefault:"mandatory"` // mandatory, opportunistic or none
	SSL         bool   `env:"SMTP_SSL"`                                // implicit TLS, usually port 465
	SenderEmail string `env:"MAILMERGE_SENDER_EMAIL"`
	SenderName  string `env:"MAILMERGE_SENDER_NAME"`
}
