package resend

// Config holds Resend email provider configuration.
type Config struct {
	APIKey      string `env:"RESEND_API_KEY"`
	SenderEmail string `env:"MAILMERGE_SENDER_EMAIL"`
	SenderName  string `env:"MAILMERGE_SENDER_NAME"`
}
