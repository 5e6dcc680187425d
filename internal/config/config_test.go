package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RENDER", "RAILWAY_ENVIRONMENT", "FLY_APP_NAME", "PORT"} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", "/home/tester")
}

func TestNewFromEnvDefaults(t *testing.T) {
	clearPlatformEnv(t)

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTP.Port)
	assert.Equal(t, ":5000", cfg.HTTP.Addr())
	assert.True(t, cfg.HTTP.ServeUI)
	assert.Equal(t, "data/captions.db", cfg.Storage.DBPath)
	assert.Equal(t, language.English, cfg.Translate.SourceLanguage)
	assert.Equal(t, language.MustParse("zh-TW"), cfg.Translate.TargetLanguage)
	assert.Equal(t, time.Hour, cfg.Translate.ProgressTTL)
	assert.Equal(t, "@hourly", cfg.Translate.SweepCron)
	assert.Equal(t, time.Second, cfg.Acquire.BaseDelay)
	assert.Equal(t, 3, cfg.Acquire.Retries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Cloud)
}

func TestNewFromEnvOverrides(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DB_PATH", "/tmp/alt.db")
	t.Setenv("SOURCE_LANG", "en-GB")
	t.Setenv("TARGET_LANG", "zh-CN")
	t.Setenv("PROGRESS_TTL", "30m")
	t.Setenv("BASE_DELAY", "2")
	t.Setenv("FETCH_RETRIES", "7")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVE_UI", "false")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "/tmp/alt.db", cfg.Storage.DBPath)
	assert.Equal(t, language.MustParse("en-GB"), cfg.Translate.SourceLanguage)
	assert.Equal(t, language.MustParse("zh-CN"), cfg.Translate.TargetLanguage)
	assert.Equal(t, 30*time.Minute, cfg.Translate.ProgressTTL)
	assert.Equal(t, 2*time.Second, cfg.Acquire.BaseDelay)
	assert.Equal(t, 7, cfg.Acquire.Retries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.HTTP.ServeUI)
}

func TestNewFromEnvInvalidLanguage(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("TARGET_LANG", "not a language")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TARGET_LANG")
}

func TestNewFromEnvInvalidLogLevel(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestNewFromEnvInvalidPort(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("PORT", "99999")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestCloudProfileBackoff(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("RENDER", "true")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Cloud)
	assert.Equal(t, 3*time.Second, cfg.Acquire.BaseDelay)
	assert.Equal(t, 5, cfg.Acquire.Retries)
}

func TestCloudDetectedFromPortWithoutHome(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("PORT", "10000")
	t.Setenv("HOME", "")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Cloud)
}

func TestOptionOverridesEnv(t *testing.T) {
	clearPlatformEnv(t)

	cfg, err := NewFromEnv(func(c *Config) {
		c.Acquire.BaseDelay = 5 * time.Second
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Acquire.BaseDelay)
}
