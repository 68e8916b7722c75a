// File: internal/config/settings.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Settings is the small per-user state the CLI persists between
// invocations: the app access token saved by `login` and the anonymous id
// used for telemetry. It lives in ~/.semgrep/settings.yml.
type Settings struct {
	APIToken        string `mapstructure:"api_token" yaml:"api_token"`
	AnonymousUserID string `mapstructure:"anonymous_user_id" yaml:"anonymous_user_id"`

	path string
}

// SettingsPath returns the default location of the settings file.
func SettingsPath() (string, error) {
	dir, err := homedir.Expand("~/.semgrep")
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(dir, "settings.yml"), nil
}

// LoadSettings reads the settings file from its default location, creating
// the anonymous user id on first use.
func LoadSettings() (*Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	return LoadSettingsAt(path)
}

// LoadSettingsAt reads the settings file at path. A missing file is not an
// error; it yields fresh settings that are persisted on first save. The
// anonymous user id is generated and saved immediately when absent so that
// telemetry from repeat runs correlates.
func LoadSettingsAt(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("error reading settings file %s: %w", path, err)
			}
		}
	}

	s := &Settings{path: path}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("error unmarshaling settings: %w", err)
	}

	if s.AnonymousUserID == "" {
		s.AnonymousUserID = uuid.NewString()
		if err := s.Save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns where this settings instance persists to.
func (s *Settings) Path() string {
	return s.path
}

// Save writes the settings back to disk, creating the parent directory on
// first use. The file may hold an access token, hence the 0600 mode.
func (s *Settings) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("api_token", s.APIToken)
	v.Set("anonymous_user_id", s.AnonymousUserID)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict settings file mode: %w", err)
	}
	return nil
}
