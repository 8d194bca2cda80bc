package storage

// Config holds S3-compatible storage configuration.
type Config struct {
	Bucket    string `env:"MAILMERGE_S3_BUCKET"`
	Prefix    string `env:"MAILMERGE_S3_PREFIX"`
	AccessKey string `env:"MAILMERGE_S3_ACCESS_KEY"`
	SecretKey string `env:"MAILMERGE_S3_SECRET_KEY"`
	Endpoint  string `env:"MAILMERGE_S3_ENDPOINT"` // MinIO or other S3-compatible services
	Region    string `env:"MAILMERGE_S3_REGION" envDefault:"us-east-1"`
	PathStyle bool   `env:"MAILMERGE_S3_PATH_STYLE"`
}

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
