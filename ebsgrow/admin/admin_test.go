package admin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mulgadc/ebsgrow/ebsgrow/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNATSToken_Format(t *testing.T) {
	token := GenerateNATSToken()
	assert.True(t, strings.HasPrefix(token, "nats_"))
	assert.Len(t, token, 37)
	assert.NotEqual(t, token, GenerateNATSToken())
}

// --- GenerateConfigFile ---

func TestGenerateConfigFile_DefaultTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config", "ebsgrow.toml")

	err := GenerateConfigFile(path, DefaultConfigTemplate, ConfigSettings{
		Backend:      config.BackendAWS,
		Region:       "ap-southeast-2",
		Endpoint:     "https://localhost:9999",
		AccessKey:    "AKIATEST",
		SecretKey:    "secret",
		NatsHost:     "nats://127.0.0.1:4222",
		NatsToken:    "nats_token",
		GuestEnabled: true,
		Schedule:     "0 0 2 * * *",
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := CheckConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
	assert.Equal(t, "https://localhost:9999", cfg.Endpoint)
	assert.Equal(t, "AKIATEST", cfg.AccessKey)
	assert.True(t, cfg.Guest.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Snapshot.WaitDelay)
	assert.Equal(t, 10*time.Minute, cfg.Resize.Timeout)
	assert.Equal(t, "nats_token", cfg.NATS.ACL.Token)
	assert.Equal(t, "ebsgrow.run", cfg.NATS.Sub.Subject)
	assert.Equal(t, "0 0 2 * * *", cfg.Schedule.Cron)
}

func TestGenerateConfigFile_InvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	err := GenerateConfigFile(filepath.Join(dir, "bad.toml"), "{{.Missing", ConfigSettings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestCheckConfigFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("backend = \n"), 0600))
	_, err := CheckConfigFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid TOML")

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("backend = \"gce\"\n"), 0600))
	_, err = CheckConfigFile(unknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")

	_, err = CheckConfigFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(existing, []byte("hi"), 0644))

	assert.True(t, FileExists(existing))
	assert.False(t, FileExists(filepath.Join(dir, "nope.txt")))
}

// --- UpdateAWSINIFile ---

func TestUpdateAWSINIFile_CreateAndUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")

	require.NoError(t, UpdateAWSINIFile(path, "ebsgrow", map[string]string{"key": "old"}))
	require.NoError(t, UpdateAWSINIFile(path, "ebsgrow", map[string]string{"key": "new"}))
	require.NoError(t, UpdateAWSINIFile(path, "default", map[string]string{"key": "default-val"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[ebsgrow]")
	assert.Contains(t, content, "[default]")
	assert.Contains(t, content, "new")
	assert.NotContains(t, content, "old")
	assert.Contains(t, content, "default-val")
}

// --- SetupAWSProfile ---

func TestSetupAWSProfile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, SetupAWSProfile("ebsgrow", "AKIATEST123", "secret123", "us-east-1", "https://localhost:9999"))

	credData, err := os.ReadFile(filepath.Join(dir, ".aws", "credentials"))
	require.NoError(t, err)
	configData, err := os.ReadFile(filepath.Join(dir, ".aws", "config"))
	require.NoError(t, err)

	assert.Contains(t, string(credData), "[ebsgrow]")
	assert.Contains(t, string(credData), "AKIATEST123")
	assert.Contains(t, string(configData), "[profile ebsgrow]")
	assert.Contains(t, string(configData), "us-east-1")
	assert.Contains(t, string(configData), "https://localhost:9999")
}

func TestSetupAWSProfile_DefaultWithoutEndpoint(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, SetupAWSProfile("default", "AKIA", "s", "eu-west-1", ""))

	configData, err := os.ReadFile(filepath.Join(dir, ".aws", "config"))
	require.NoError(t, err)
	assert.Contains(t, string(configData), "[default]")
	assert.NotContains(t, string(configData), "endpoint_url")
}
