package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the process configuration. It is built once at startup and not
// modified afterwards.
type Config struct {
	Port     string `koanf:"port"`
	LogLevel string `koanf:"log_level"`

	LineChannelAccessToken string `koanf:"line_channel_access_token"`
	LineChannelSecret      string `koanf:"line_channel_secret"`
	OpenAIAPIKey           string `koanf:"openai_api_key"`

	OpenAIModel     string        `koanf:"openai_model"`
	OpenAIMaxTokens int           `koanf:"openai_max_tokens"`
	OpenAIBaseURL   string        `koanf:"openai_base_url"`
	OpenAITimeout   time.Duration `koanf:"openai_timeout"`

	ImageURL        string `koanf:"image_url"`
	PreviewImageURL string `koanf:"preview_image_url"`
	SummaryText     string `koanf:"summary_text"`

	// ParamPrefix enables SSM lookup of credentials missing from the environment.
	ParamPrefix string `koanf:"param_prefix"`
	// EventTable enables the DynamoDB redelivery guard.
	EventTable string `koanf:"event_table"`
}

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	return &Config{
		Port:            "8080",
		LogLevel:        "info",
		OpenAIModel:     "gpt-3.5-turbo",
		OpenAIMaxTokens: 150,
		OpenAITimeout:   10 * time.Second,
		ImageURL:        "https://example.com/path-to-your-image.jpg",
		SummaryText:     "ผลการวิเคราะห์: รายงานสรุปของคุณเสร็จสมบูรณ์แล้ว",
	}
}

// keys lists the recognized environment variables.
var keys = map[string]bool{
	"PORT":                      true,
	"LOG_LEVEL":                 true,
	"LINE_CHANNEL_ACCESS_TOKEN": true,
	"LINE_CHANNEL_SECRET":       true,
	"OPENAI_API_KEY":            true,
	"OPENAI_MODEL":              true,
	"OPENAI_MAX_TOKENS":         true,
	"OPENAI_BASE_URL":           true,
	"OPENAI_TIMEOUT":            true,
	"IMAGE_URL":                 true,
	"PREVIEW_IMAGE_URL":         true,
	"SUMMARY_TEXT":              true,
	"PARAM_PREFIX":              true,
	"EVENT_TABLE":               true,
}

// Load reads dotenvPath into the process environment when the file exists
// (variables already set win), then overlays the environment on Default.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", dotenvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: access %s: %w", dotenvPath, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string {
		if !keys[s] {
			return ""
		}
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.PreviewImageURL == "" {
		cfg.PreviewImageURL = cfg.ImageURL
	}
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	return cfg, cfg.Validate()
}

// Validate checks the tunables. Missing credentials are not an error; see
// MissingCredentials.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("config: PORT must not be empty")
	}
	if c.OpenAIMaxTokens <= 0 {
		return errors.New("config: OPENAI_MAX_TOKENS must be positive")
	}
	if c.OpenAITimeout <= 0 {
		return errors.New("config: OPENAI_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		return errors.New("config: OPENAI_MODEL must not be empty")
	}
	return nil
}

type credential struct {
	envName string
	param   string
	field   func(*Config) *string
}

var credentials = []credential{
	{envName: "LINE_CHANNEL_ACCESS_TOKEN", param: "line-channel-access-token", field: func(c *Config) *string { return &c.LineChannelAccessToken }},
	{envName: "LINE_CHANNEL_SECRET", param: "line-channel-secret", field: func(c *Config) *string { return &c.LineChannelSecret }},
	{envName: "OPENAI_API_KEY", param: "openai-api-key", field: func(c *Config) *string { return &c.OpenAIAPIKey }},
}

// MissingCredentials returns the environment names of unset credentials.
func (c *Config) MissingCredentials() []string {
	var missing []string
	for _, cred := range credentials {
		if strings.TrimSpace(*cred.field(c)) == "" {
			missing = append(missing, cred.envName)
		}
	}
	return missing
}

// ParameterGetter fetches SSM parameters by full name.
type ParameterGetter interface {
	GetParameters(ctx context.Context, names []string) (map[string]string, error)
}

// ResolveCredentials fills credentials missing from the environment with the
// SSM parameters <ParamPrefix>/<name>. It does nothing without a prefix.
func (c *Config) ResolveCredentials(ctx context.Context, params ParameterGetter) error {
	if c.ParamPrefix == "" {
		return nil
	}
	if params == nil {
		return errors.New("config: parameter getter must not be nil")
	}

	var names []string
	for _, cred := range credentials {
		if strings.TrimSpace(*cred.field(c)) == "" {
			names = append(names, c.ParamPrefix+"/"+cred.param)
		}
	}
	if len(names) == 0 {
		return nil
	}

	values, err := params.GetParameters(ctx, names)
	if err != nil {
		return fmt.Errorf("config: resolve credentials: %w", err)
	}
	for _, cred := range credentials {
		if v, ok := values[c.ParamPrefix+"/"+cred.param]; ok && strings.TrimSpace(*cred.field(c)) == "" {
			*cred.field(c) = strings.TrimSpace(v)
		}
	}
	return nil
}
