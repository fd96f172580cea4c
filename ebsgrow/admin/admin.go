package admin

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/mulgadc/ebsgrow/ebsgrow/config"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

type ConfigSettings struct {
	Backend   string
	Region    string
	Endpoint  string
	Profile   string
	AccessKey string
	SecretKey string

	NatsHost  string
	NatsToken string

	GuestEnabled bool

	// Periodic run, empty disables it
	Schedule string
}

// DefaultConfigTemplate is the ebsgrow.toml written by admin init
const DefaultConfigTemplate = `# ebsgrow configuration
backend = "{{.Backend}}"
region = "{{.Region}}"
endpoint = "{{.Endpoint}}"
profile = "{{.Profile}}"
accesskey = "{{.AccessKey}}"
secretkey = "{{.SecretKey}}"
continue_on_error = false
policy_file = ""

[snapshot]
description = "Created by backup_ebs lambda function"
wait_delay = "15s"
wait_max_attempts = 40

[resize]
default_increment = 10
poll_interval = "5s"
timeout = "10m"

[guest]
enabled = {{.GuestEnabled}}
document = "AWS-RunShellScript"
root_path = "/"
poll_interval = "1s"
timeout = "5m"

[gateway]
host = "0.0.0.0:8080"
debug = false
disable_logging = false

[nats]
host = "{{.NatsHost}}"
events = "ebsgrow.events"
timeout = "15m"

[nats.acl]
token = "{{.NatsToken}}"

[nats.sub]
subject = "ebsgrow.run"
queue = "ebsgrow-workers"

[schedule]
cron = "{{.Schedule}}"
increment = 10
`

// GenerateConfigFile creates a configuration file from a template
func GenerateConfigFile(configPath string, configTemplate string, configSettings ConfigSettings) error {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with secure permissions
	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, configSettings); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// CheckConfigFile parses the TOML at path and loads it through the regular
// config path, so a generated file is known to be usable.
func CheckConfigFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML in %s: %w", path, err)
	}

	return config.Load(viper.New(), path)
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// UpdateAWSINIFile updates or creates an AWS INI file section with given key-value pairs
func UpdateAWSINIFile(path, section string, values map[string]string) error {
	var cfg *ini.File
	var err error

	if FileExists(path) {
		cfg, err = ini.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load INI file: %w", err)
		}
	} else {
		cfg = ini.Empty()
	}

	sec, err := cfg.NewSection(section)
	if err != nil {
		sec, err = cfg.GetSection(section)
		if err != nil {
			return fmt.Errorf("failed to get section: %w", err)
		}
	}

	for key, value := range values {
		sec.Key(key).SetValue(value)
	}

	return cfg.SaveTo(path)
}

// SetupAWSProfile writes profile into ~/.aws/credentials and ~/.aws/config so
// the aws backend (and the AWS CLI) can use it. An empty endpoint leaves
// endpoint_url unset.
func SetupAWSProfile(profile, accessKey, secretKey, region, endpoint string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	awsDir := filepath.Join(homeDir, ".aws")
	if err := os.MkdirAll(awsDir, 0700); err != nil {
		return err
	}

	if err := UpdateAWSINIFile(filepath.Join(awsDir, "credentials"), profile, map[string]string{
		"aws_access_key_id":     accessKey,
		"aws_secret_access_key": secretKey,
	}); err != nil {
		return err
	}

	configSection := profile
	if profile != "default" {
		configSection = "profile " + profile
	}

	values := map[string]string{
		"region": region,
		"output": "json",
	}
	if endpoint != "" {
		values["endpoint_url"] = endpoint
	}

	return UpdateAWSINIFile(filepath.Join(awsDir, "config"), configSection, values)
}

// GenerateNATSToken generates a secure random token for NATS
func GenerateNATSToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return "nats_" + base64.URLEncoding.EncodeToString(bytes)[:32]
}
