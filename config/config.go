// Package config loads gateway settings from environment variables and
// configures the process-wide logger. Credentials are modeled as Secret so
// they render masked in any debug or startup output.
package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Secret holds a sensitive value such as a token or password. Everything
// except Value renders the masked form.
type Secret string

// UnmarshalText lets envconfig populate a Secret from the environment.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}

// String implements fmt.Stringer and always masks.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON masks the value in any JSON dump.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Value returns the real secret for handing to a backend client.
func (s Secret) Value() string {
	return string(s)
}

// Settings is the process-wide gateway configuration.
type Settings struct {
	LogLevel   string `envconfig:"INFLUXGATE_LOG_LEVEL" default:"info"`
	ListenAddr string `envconfig:"INFLUXGATE_LISTEN_ADDR" default:":8080"`

	URL               string `envconfig:"INFLUX_URL" required:"true"`
	Version           string `envconfig:"INFLUX_VERSION" default:"auto"`
	RequestTimeoutSec int    `envconfig:"INFLUX_REQUEST_TIMEOUT_SEC" default:"30"`

	// InfluxDB 2.x
	Org           string `envconfig:"INFLUX_ORG"`
	Token         Secret `envconfig:"INFLUX_TOKEN"`
	DefaultBucket string `envconfig:"INFLUX_DEFAULT_BUCKET"`

	// InfluxDB 1.x
	Username  string `envconfig:"INFLUX_USERNAME"`
	Password  Secret `envconfig:"INFLUX_PASSWORD"`
	DefaultDB string `envconfig:"INFLUX_DEFAULT_DB"`
	DefaultRP string `envconfig:"INFLUX_DEFAULT_RP"`
}

// Load reads Settings from the environment.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, errors.Wrap(err, "load settings from environment")
	}
	switch s.Version {
	case "auto", "1", "2":
	default:
		return Settings{}, errors.Errorf("INFLUX_VERSION must be one of auto, 1, 2; got %q", s.Version)
	}
	if s.RequestTimeoutSec <= 0 {
		return Settings{}, errors.Errorf("INFLUX_REQUEST_TIMEOUT_SEC must be positive; got %d", s.RequestTimeoutSec)
	}
	return s, nil
}

// RequestTimeout returns the configured backend request timeout.
func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

// Fields returns a masked view of the settings suitable for startup logging.
func (s Settings) Fields() map[string]interface{} {
	return map[string]interface{}{
		"log_level":           s.LogLevel,
		"listen_addr":         s.ListenAddr,
		"influx_url":          s.URL,
		"influx_version":      s.Version,
		"request_timeout_sec": s.RequestTimeoutSec,
		"org":                 s.Org,
		"token":               s.Token.String(),
		"default_bucket":      s.DefaultBucket,
		"username":            s.Username,
		"password":            s.Password.String(),
		"default_db":          s.DefaultDB,
		"default_rp":          s.DefaultRP,
	}
}

// SetupLogging configures the global zerolog logger. Unknown levels fall
// back to info.
func SetupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
