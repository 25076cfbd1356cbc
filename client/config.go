package client

import (
	"fmt"
	"time"

	"github.com/kbukum/tapioca/adapter"
	"github.com/kbukum/tapioca/config"
	"github.com/kbukum/tapioca/httpclient"
	"github.com/kbukum/tapioca/logger"
	"github.com/kbukum/tapioca/observability"
	"github.com/kbukum/tapioca/validation"
)

// Config describes an API client in a config file.
//
//	name: billing
//	api_root: https://api.example.com/v1
//	codec: json
//	resources:
//	  invoices: /invoices
//	  invoice: /invoices/{id}
//	credentials:
//	  access_token: ${TOKEN}
//	retry:
//	  max_retries: 3
//	pagination:
//	  kind: link
//	  items_key: data
//	  next_key: links.next
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	APIRoot     string            `yaml:"api_root" mapstructure:"api_root" validate:"required,httpurl"`
	Codec       string            `yaml:"codec" mapstructure:"codec" validate:"omitempty,oneof=json xml form"`
	Resources   map[string]string `yaml:"resources" mapstructure:"resources"`
	Credentials map[string]string `yaml:"credentials" mapstructure:"credentials"`
	// Headers are added to every request by a header layer.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// CredentialHeader names the header that carries the access token.
	// Defaults to Authorization with a Bearer prefix.
	CredentialHeader string `yaml:"credential_header" mapstructure:"credential_header"`

	HTTP       httpclient.Config    `yaml:"http" mapstructure:"http"`
	Retry      RetryConfig          `yaml:"retry" mapstructure:"retry"`
	Pagination PaginationConfig     `yaml:"pagination" mapstructure:"pagination"`
	Telemetry  observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// RetryConfig configures adapter.RetryOnStatus. MaxRetries 0 disables retries.
type RetryConfig struct {
	Statuses   []int         `yaml:"statuses" mapstructure:"statuses" validate:"dive,gte=100,lte=599"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	WaitMin    time.Duration `yaml:"wait_min" mapstructure:"wait_min"`
	WaitMax    time.Duration `yaml:"wait_max" mapstructure:"wait_max"`
}

// PaginationConfig selects a pager. An empty Kind disables pagination.
type PaginationConfig struct {
	Kind        string `yaml:"kind" mapstructure:"kind" validate:"omitempty,oneof=link offset"`
	ItemsKey    string `yaml:"items_key" mapstructure:"items_key"`
	NextKey     string `yaml:"next_key" mapstructure:"next_key"`
	OffsetParam string `yaml:"offset_param" mapstructure:"offset_param"`
	LimitParam  string `yaml:"limit_param" mapstructure:"limit_param"`
	Limit       int    `yaml:"limit" mapstructure:"limit" validate:"gte=0"`
}

// AccessTokenKey is the credential the default credential layer sends.
const AccessTokenKey = "access_token"

// ApplyDefaults fills zero-value fields.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Codec == "" {
		c.Codec = "json"
	}
	if c.CredentialHeader == "" {
		c.CredentialHeader = "Authorization"
	}
	if c.Retry.MaxRetries > 0 && c.Retry.WaitMin == 0 {
		c.Retry.WaitMin = 500 * time.Millisecond
	}
	if c.Retry.WaitMax == 0 {
		c.Retry.WaitMax = 30 * time.Second
	}
	c.HTTP.ApplyDefaults()
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("config.http: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}

	v := validation.New()
	v.Custom(c.Retry.WaitMax == 0 || c.Retry.WaitMax >= c.Retry.WaitMin,
		"retry.wait_max", "must not be shorter than retry.wait_min")
	switch c.Pagination.Kind {
	case "link":
		v.Required("pagination.next_key", c.Pagination.NextKey)
	case "offset":
		v.Custom(c.Pagination.Limit > 0, "pagination.limit", "must be positive for offset pagination")
	}
	for name, tmpl := range c.Resources {
		v.Required("resources."+name, tmpl)
	}
	return v.Err()
}

// Params returns the API parameters for the configured client.
func (c *Config) Params() *adapter.APIParams {
	return &adapter.APIParams{
		APIRoot:     c.APIRoot,
		Resources:   c.Resources,
		Credentials: adapter.NewCredentials(c.Credentials),
	}
}

// AdapterOptions returns the adapter options the configuration implies.
func (c *Config) AdapterOptions() []adapter.Option {
	opts := []adapter.Option{adapter.WithAPIRoot(c.APIRoot)}
	if len(c.Headers) > 0 {
		opts = append(opts, adapter.WithLayers(adapter.HeaderLayer(c.Headers)))
	}
	if c.Credentials[AccessTokenKey] != "" && c.HTTP.Auth == nil {
		prefix := ""
		if c.CredentialHeader == "Authorization" {
			prefix = "Bearer "
		}
		opts = append(opts, adapter.WithLayers(adapter.CredentialHeaderLayer(c.CredentialHeader, AccessTokenKey, prefix)))
	}
	if c.Retry.MaxRetries > 0 {
		opts = append(opts, adapter.WithRetryPolicy(adapter.RetryOnStatus{
			Statuses:   c.Retry.Statuses,
			MaxRetries: c.Retry.MaxRetries,
			WaitMin:    c.Retry.WaitMin,
			WaitMax:    c.Retry.WaitMax,
		}))
	}
	switch c.Pagination.Kind {
	case "link":
		opts = append(opts, adapter.WithPager(adapter.LinkPager{
			ItemsKey: c.Pagination.ItemsKey,
			NextKey:  c.Pagination.NextKey,
		}))
	case "offset":
		opts = append(opts, adapter.WithPager(adapter.OffsetPager{
			ItemsKey:    c.Pagination.ItemsKey,
			OffsetParam: c.Pagination.OffsetParam,
			LimitParam:  c.Pagination.LimitParam,
			Limit:       c.Pagination.Limit,
		}))
	}
	return opts
}

// NewFromConfig builds the adapter, HTTP transport and client described by
// cfg. Extra adapter options are applied after the configured ones.
func NewFromConfig(cfg Config, adapterOpts []adapter.Option, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kind, err := adapter.ParseCodecKind(cfg.Codec)
	if err != nil {
		return nil, err
	}
	codec, err := adapter.CodecFor(kind)
	if err != nil {
		return nil, err
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	a, err := adapter.New(codec, append(append(cfg.AdapterOptions(), adapter.WithLogger(log.WithComponent("adapter"))), adapterOpts...)...)
	if err != nil {
		return nil, err
	}

	transport, err := NewHTTPTransport(cfg.HTTP)
	if err != nil {
		return nil, err
	}
	return New(a, transport, cfg.Params(), append([]Option{WithLogger(log.WithComponent("client"))}, opts...)...)
}

// LoadConfig reads the named configuration with the config package and
// applies defaults.
func LoadConfig(name string, opts ...config.LoaderOption) (Config, error) {
	var cfg Config
	if err := config.LoadConfig(name, &cfg, opts...); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
