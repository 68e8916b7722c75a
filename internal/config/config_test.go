// File: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestNewFromViper_Defaults(t *testing.T) {
	cfg, err := NewFromViper(defaultViper())
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "semgrep", cfg.Logger.ServiceName)
	assert.Equal(t, 0, cfg.Scan.Jobs)
	assert.Equal(t, int64(1_000_000), cfg.Scan.MaxTargetBytes)
	assert.Equal(t, 30*time.Minute, cfg.Scan.Timeout)
	assert.Equal(t, "https://semgrep.dev", cfg.App.URL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestNewFromViper_OverridesApply(t *testing.T) {
	v := defaultViper()
	v.Set("scan.jobs", 7)
	v.Set("scan.exclude", []string{"vendor", "*.min.js"})
	v.Set("app.url", "https://app.internal")

	cfg, err := NewFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scan.Jobs)
	assert.Equal(t, []string{"vendor", "*.min.js"}, cfg.Scan.Exclude)
	assert.Equal(t, "https://app.internal", cfg.App.URL)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		set  func(v *viper.Viper)
	}{
		{"negative jobs", func(v *viper.Viper) { v.Set("scan.jobs", -1) }},
		{"zero max target bytes", func(v *viper.Viper) { v.Set("scan.max_target_bytes", 0) }},
		{"empty app url", func(v *viper.Viper) { v.Set("app.url", "") }},
		{"metrics enabled without endpoint", func(v *viper.Viper) { v.Set("metrics.endpoint", "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := defaultViper()
			tt.set(v)
			_, err := NewFromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestSettings_FreshFileGetsAnonymousID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")

	s, err := LoadSettingsAt(path)
	require.NoError(t, err)
	assert.NotEmpty(t, s.AnonymousUserID)
	assert.Empty(t, s.APIToken)

	// The id is persisted immediately so later runs reuse it.
	again, err := LoadSettingsAt(path)
	require.NoError(t, err)
	assert.Equal(t, s.AnonymousUserID, again.AnonymousUserID)
}

func TestSettings_SaveRoundTripsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")

	s, err := LoadSettingsAt(path)
	require.NoError(t, err)
	s.APIToken = "tok-123"
	require.NoError(t, s.Save())

	reloaded, err := LoadSettingsAt(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", reloaded.APIToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSettings_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "settings.yml")
	s, err := LoadSettingsAt(path)
	require.NoError(t, err)
	assert.FileExists(t, s.Path())
}
