// Package config loads sealfile settings from an optional .sealfile.yaml
// and SEALFILE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/illarion/sealfile/internal/logger"
)

const (
	DefaultConfigName  = ".sealfile"
	DefaultCatalogFile = ".sealfile"
	EnvPrefix          = "SEALFILE"
)

// Config holds the settings used by the CLI
type Config struct {
	LogLevel log.Level
	Workers  int
	Catalog  string // Catalog path relative to the working root, empty to disable
	Keyring  bool   // Look up and offer to store passphrases in the OS keyring
	Remove   bool   // Remove the source file after a successful operation
	Force    bool   // Overwrite existing output files
}

// NewDefaultConfig creates a new Config with default settings.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: log.WarnLevel,
		Workers:  runtime.NumCPU(),
		Catalog:  DefaultCatalogFile,
		Keyring:  true,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := NewDefaultConfig()
	v.SetDefault("log.level", defaults.LogLevel.String())
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("catalog", defaults.Catalog)
	v.SetDefault("keyring", defaults.Keyring)
	v.SetDefault("remove", defaults.Remove)
	v.SetDefault("force", defaults.Force)
	return v
}

// Load reads .sealfile.yaml from dir, if present, and applies environment
// overrides. A missing config file is not an error.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filepath.Join(dir, DefaultConfigName+".yaml"))
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return parse(v)
}

func parse(v *viper.Viper) (*Config, error) {
	level, err := logger.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}

	workers := v.GetInt("workers")
	if workers < 1 {
		return nil, fmt.Errorf("invalid workers setting %d: must be at least 1", workers)
	}

	catalog := v.GetString("catalog")
	if catalog != "" && !filepath.IsLocal(catalog) {
		return nil, fmt.Errorf("invalid catalog path %q: must be inside the working directory", catalog)
	}

	return &Config{
		LogLevel: level,
		Workers:  workers,
		Catalog:  catalog,
		Keyring:  v.GetBool("keyring"),
		Remove:   v.GetBool("remove"),
		Force:    v.GetBool("force"),
	}, nil
}
