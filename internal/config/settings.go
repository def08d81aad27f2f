package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read into Settings.
const EnvPrefix = "RESTCALL"

// Settings holds process-wide options loaded from defaults, a .env file,
// RESTCALL_* environment variables and command-line flags (highest precedence).
type Settings struct {
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Transport string        `mapstructure:"transport"`
	NoColor   bool          `mapstructure:"no_color"`
}

// DefaultTimeout bounds a single exchange when nothing else is configured.
const DefaultTimeout = 30 * time.Second

// Transport names accepted by Settings.Transport.
const (
	TransportStd   = "std"
	TransportResty = "resty"
)

// flagKeys maps command-line flag names to settings keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-format": "log_format",
	"timeout":    "timeout",
	"transport":  "transport",
	"no-color":   "no_color",
}

// LoadSettings resolves Settings. envFile is optional; a missing file is ignored.
// flags may be nil.
func LoadSettings(envFile string, flags *pflag.FlagSet) (*Settings, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("transport", TransportStd)
	v.SetDefault("no_color", false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for flagName, key := range flagKeys {
			f := flags.Lookup(flagName)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	s.Transport = strings.ToLower(strings.TrimSpace(s.Transport))
	if s.Transport != TransportStd && s.Transport != TransportResty {
		return nil, fmt.Errorf("invalid transport %q (want %s or %s)", s.Transport, TransportStd, TransportResty)
	}
	if s.Timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %v (must be positive)", s.Timeout)
	}
	return &s, nil
}
