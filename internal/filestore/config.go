package filestore

import "github.com/koustreak/xmldbms/internal/errs"

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string `yaml:"access_key"`

	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `yaml:"region"`

	// Bucket holds the map definitions.
	Bucket string `yaml:"bucket"`
}

// DefaultConfig returns a local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
	}
}

// Validate checks that the config names a provider, an endpoint and a bucket.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMinIO:
	case "":
		return errs.New(errs.ErrKindInvalidInput, "store provider is required")
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown store provider %q", c.Provider)
	}
	if c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "store endpoint is required")
	}
	if c.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "store bucket is required")
	}
	return nil
}
