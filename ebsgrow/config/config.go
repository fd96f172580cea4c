package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider backends for the block-storage capability.
const (
	BackendAWS  = "aws"
	BackendNATS = "nats"
)

// DefaultIncrement is the growth percentage used when a request omits inc.
const DefaultIncrement = 10

// Config holds all configuration for the application
type Config struct {
	// Provider access
	Backend   string `mapstructure:"backend" toml:"backend"`
	Region    string `mapstructure:"region" toml:"region"`
	Endpoint  string `mapstructure:"endpoint" toml:"endpoint"` // Custom EC2/SSM endpoint, e.g. a Hive AWS gateway
	Profile   string `mapstructure:"profile" toml:"profile"`
	AccessKey string `mapstructure:"accesskey" toml:"accesskey"`
	SecretKey string `mapstructure:"secretkey" toml:"secretkey"`
	Insecure  bool   `mapstructure:"insecure" toml:"insecure"`

	// Process every volume and report all failures instead of stopping at the first one
	ContinueOnError bool `mapstructure:"continue_on_error" toml:"continue_on_error"`

	// Deployed IAM policy document to verify the workflow against at startup
	PolicyFile string `mapstructure:"policy_file" toml:"policy_file"`

	Snapshot SnapshotConfig `mapstructure:"snapshot" toml:"snapshot"`
	Resize   ResizeConfig   `mapstructure:"resize" toml:"resize"`
	Guest    GuestConfig    `mapstructure:"guest" toml:"guest"`
	Gateway  GatewayConfig  `mapstructure:"gateway" toml:"gateway"`
	NATS     NATSConfig     `mapstructure:"nats" toml:"nats"`
	Schedule ScheduleConfig `mapstructure:"schedule" toml:"schedule"`
}

// SnapshotConfig controls snapshot creation and the completion waiter
type SnapshotConfig struct {
	Description     string        `mapstructure:"description" toml:"description"`
	WaitDelay       time.Duration `mapstructure:"wait_delay" toml:"wait_delay"`
	WaitMaxAttempts int           `mapstructure:"wait_max_attempts" toml:"wait_max_attempts"`
}

// ResizeConfig controls the volume modification poll
type ResizeConfig struct {
	DefaultIncrement int           `mapstructure:"default_increment" toml:"default_increment"`
	PollInterval     time.Duration `mapstructure:"poll_interval" toml:"poll_interval"`
	Timeout          time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// GuestConfig controls the remote filesystem extension on the attached instance
type GuestConfig struct {
	Enabled      bool          `mapstructure:"enabled" toml:"enabled"`
	Document     string        `mapstructure:"document" toml:"document"`
	RootPath     string        `mapstructure:"root_path" toml:"root_path"`
	PollInterval time.Duration `mapstructure:"poll_interval" toml:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// GatewayConfig holds the HTTP gateway configuration
type GatewayConfig struct {
	Host           string `mapstructure:"host" toml:"host"`
	TLSKey         string `mapstructure:"tlskey" toml:"tlskey"`
	TLSCert        string `mapstructure:"tlscert" toml:"tlscert"`
	Debug          bool   `mapstructure:"debug" toml:"debug"`
	DisableLogging bool   `mapstructure:"disable_logging" toml:"disable_logging"`
}

// NATSConfig holds the NATS configuration
type NATSConfig struct {
	Host    string        `mapstructure:"host" toml:"host"`
	ACL     NATSACL       `mapstructure:"acl" toml:"acl"`
	Sub     NATSSub       `mapstructure:"sub" toml:"sub"`
	Events  string        `mapstructure:"events" toml:"events"` // Subject prefix for result events, empty disables them
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// NATSACL holds the NATS ACL configuration
type NATSACL struct {
	Token string `mapstructure:"token" toml:"token"`
}

// NATSSub holds the NATS subscription configuration
type NATSSub struct {
	Subject string `mapstructure:"subject" toml:"subject"`
	Queue   string `mapstructure:"queue" toml:"queue"`
}

// ScheduleConfig holds the parameters of periodic runs
type ScheduleConfig struct {
	Cron       string `mapstructure:"cron" toml:"cron"`
	InstanceID string `mapstructure:"instance_id" toml:"instance_id"`
	VolumeID   string `mapstructure:"volume_id" toml:"volume_id"`
	Increment  int    `mapstructure:"increment" toml:"increment"`
}

// SetDefaults registers the default values with viper
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendAWS)
	v.SetDefault("region", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("profile", "")
	v.SetDefault("accesskey", "")
	v.SetDefault("secretkey", "")
	v.SetDefault("insecure", false)
	v.SetDefault("policy_file", "")
	v.SetDefault("continue_on_error", false)

	v.SetDefault("snapshot.description", "Created by backup_ebs lambda function")
	v.SetDefault("snapshot.wait_delay", 15*time.Second)
	v.SetDefault("snapshot.wait_max_attempts", 40)

	v.SetDefault("resize.default_increment", DefaultIncrement)
	v.SetDefault("resize.poll_interval", 5*time.Second)
	v.SetDefault("resize.timeout", 10*time.Minute)

	v.SetDefault("guest.enabled", false)
	v.SetDefault("guest.document", "AWS-RunShellScript")
	v.SetDefault("guest.root_path", "/")
	v.SetDefault("guest.poll_interval", time.Second)
	v.SetDefault("guest.timeout", 5*time.Minute)

	v.SetDefault("gateway.host", "0.0.0.0:8080")

	v.SetDefault("nats.host", "nats://127.0.0.1:4222")
	v.SetDefault("nats.sub.subject", "ebsgrow.run")
	v.SetDefault("nats.sub.queue", "ebsgrow-workers")
	v.SetDefault("nats.events", "ebsgrow.events")
	v.SetDefault("nats.timeout", 15*time.Minute)

	v.SetDefault("schedule.increment", DefaultIncrement)
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	return Load(viper.GetViper(), configPath)
}

// Load reads configuration into v from the optional TOML file at configPath,
// EBSGROW_* environment variables and defaults, in that order of precedence
// after any flags already bound to v.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	v.SetEnvPrefix("EBSGROW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("toml")

			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Config file not found: %s, using environment variables and defaults\n", configPath)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAWS, BackendNATS:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendAWS, BackendNATS)
	}

	if c.Backend == BackendNATS && c.NATS.Host == "" {
		return fmt.Errorf("NATS host is required for the nats backend")
	}

	if c.Backend == BackendNATS && c.Guest.Enabled {
		return fmt.Errorf("guest filesystem extension requires the aws backend")
	}

	if c.Resize.DefaultIncrement < 0 {
		return fmt.Errorf("resize.default_increment must not be negative")
	}

	if c.Resize.PollInterval <= 0 || c.Resize.Timeout <= 0 {
		return fmt.Errorf("resize.poll_interval and resize.timeout must be positive")
	}

	if c.Guest.Enabled && (c.Guest.PollInterval <= 0 || c.Guest.Timeout <= 0) {
		return fmt.Errorf("guest.poll_interval and guest.timeout must be positive")
	}

	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access key and secret key must be set together")
	}

	return nil
}
