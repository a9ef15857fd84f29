// Package config loads smuctl configuration from a TOML file,
// environment variables, and command-line flags, in ascending
// precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/smuctl/internal/errors"
)

const (
	envConfigPath = "SMUCTL_CONFIG"

	DefaultLogLevel   = "info"
	DefaultVoltage    = 1.0
	DefaultCompliance = 0.1
	DefaultReadings   = 10
	DefaultInterval   = 500 * time.Millisecond
	DefaultTimeout    = 5 * time.Second
	DefaultBaud       = 9600
	DefaultMQTTTopic  = "smu/readings"
)

var errFactory = errors.New()

// Acquisition groups the parameters of one measurement run. The values
// are fixed before the run starts and never change during it.
type Acquisition struct {
	Resource   string        // resource identifier of the instrument
	Voltage    float64       // source level, volts
	Compliance float64       // current protection limit, amps
	Readings   int           // number of readings to take
	Interval   time.Duration // delay between readings
	Timeout    time.Duration // per-command communication timeout
	Baud       uint          // serial resources only
}

// Validate checks the run invariants.
func (a Acquisition) Validate() error {
	switch {
	case a.Resource == "":
		return errFactory.WithData(errors.ErrMissingConfig, "resource")
	case a.Readings < 1:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "readings must be at least 1")
	case a.Interval < 0:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "interval must not be negative")
	case a.Timeout <= 0:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "timeout must be positive")
	case a.Compliance <= 0:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "compliance must be positive")
	}

	return nil
}

// Output selects where completed series are written.
type Output struct {
	CSV      string // CSV file path, empty disables
	Database string // SQLite archive path, empty disables
}

// MQTT configures the live reading publisher.
type MQTT struct {
	Broker string // e.g. tcp://localhost:1883, empty disables
	Topic  string
}

// Influx configures the time-series sink.
type Influx struct {
	URL    string // empty disables
	Token  string
	Org    string
	Bucket string
}

// Monitor configures the live HTTP stream.
type Monitor struct {
	Listen string // listen address, empty disables
}

type Config struct {
	Resource   string
	Voltage    float64
	Compliance float64
	Readings   int
	Interval   time.Duration
	Timeout    time.Duration
	Baud       uint
	LogLevel   string `mapstructure:"log_level"`
	Output     Output
	MQTT       MQTT `mapstructure:"mqtt"`
	Influx     Influx
	Monitor    Monitor
}

// Acquisition extracts the per-run parameter set.
func (c *Config) Acquisition() Acquisition {
	return Acquisition{
		Resource:   c.Resource,
		Voltage:    c.Voltage,
		Compliance: c.Compliance,
		Readings:   c.Readings,
		Interval:   c.Interval,
		Timeout:    c.Timeout,
		Baud:       c.Baud,
	}
}

// Validate checks the fields every command depends on. Run-specific
// invariants live on Acquisition.
func (c *Config) Validate() error {
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// Load reads configuration from all sources. An explicit file given
// via WithConfigFile or the SMUCTL_CONFIG environment variable must
// exist; otherwise the usual search paths are tried and a missing
// file falls back to defaults.
func Load(opts ...Option) (*Config, error) {
	o := options{envPrefix: "SMUCTL"}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := o.configPath
	if explicit == "" {
		explicit = os.Getenv(envConfigPath)
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("smuctl")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/smuctl")
		}
		v.AddConfigPath("/etc")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	if o.flags != nil {
		if err := bindFlags(v, o.flags); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("resource", "")
	v.SetDefault("voltage", DefaultVoltage)
	v.SetDefault("compliance", DefaultCompliance)
	v.SetDefault("readings", DefaultReadings)
	v.SetDefault("interval", DefaultInterval.String())
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("baud", DefaultBaud)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("output.csv", "")
	v.SetDefault("output.database", "")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "")
	v.SetDefault("monitor.listen", "")
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"resource":      "resource",
	"voltage":       "voltage",
	"compliance":    "compliance",
	"readings":      "readings",
	"interval":      "interval",
	"timeout":       "timeout",
	"baud":          "baud",
	"log-level":     "log_level",
	"csv":           "output.csv",
	"database":      "output.database",
	"mqtt-broker":   "mqtt.broker",
	"mqtt-topic":    "mqtt.topic",
	"influx-url":    "influx.url",
	"influx-token":  "influx.token",
	"influx-org":    "influx.org",
	"influx-bucket": "influx.bucket",
	"listen":        "monitor.listen",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	return nil
}
