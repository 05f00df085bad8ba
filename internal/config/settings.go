// Package config resolves reposcope settings from defaults, an optional YAML
// config file, REPOSCOPE_* environment variables and CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/reposcope/internal/extractor"
)

// LLM provider names accepted by llm.provider.
const (
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai-compatible"
	ProviderOllama           = "ollama"
	ProviderNone             = "none"
)

// LLMSettings configures the remote analysis capability.
type LLMSettings struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"` // zero means no timeout
}

// ExtractorSettings configures repository content extraction.
type ExtractorSettings struct {
	FlattenCommand string `mapstructure:"flatten_command"`
	OutputDir      string `mapstructure:"output_dir"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level string `mapstructure:"level"`
}

// Settings application settings
type Settings struct {
	DBPath     string            `mapstructure:"db_path"`
	DataDir    string            `mapstructure:"data_dir"`
	ConfigFile string            `mapstructure:"config"`
	LLM        LLMSettings       `mapstructure:"llm"`
	Extractor  ExtractorSettings `mapstructure:"extractor"`
	Log        LogSettings       `mapstructure:"log"`
}

// IndexPath returns the location of the persistent search index.
func (s *Settings) IndexPath() string {
	return filepath.Join(s.DataDir, "catalog.bleve")
}

// PIDFile returns the location of the watch daemon PID file.
func (s *Settings) PIDFile() string {
	return filepath.Join(s.DataDir, "watch.pid")
}

// LogFile returns the location of the watch daemon log file.
func (s *Settings) LogFile() string {
	return filepath.Join(s.DataDir, "watch.log")
}

// Dir returns the reposcope config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/reposcope if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "reposcope"), nil
}

// LoadSettings loads settings from defaults, the config file and environment variables.
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > config file > defaults.
// If flags is nil, only the config file, env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("db_path", "")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("config", "")
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("extractor.flatten_command", extractor.DefaultFlattenCommand)
	v.SetDefault("extractor.output_dir", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("REPOSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional OpenAI variable is honoured when no prefixed one is set.
	_ = v.BindEnv("llm.api_key", "REPOSCOPE_LLM_API_KEY", "OPENAI_API_KEY")

	if flags != nil {
		_ = v.BindPFlag("db_path", flags.Lookup("db"))
		_ = v.BindPFlag("data_dir", flags.Lookup("data-dir"))
		_ = v.BindPFlag("config", flags.Lookup("config"))
		_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
		_ = v.BindPFlag("llm.provider", flags.Lookup("llm-provider"))
		_ = v.BindPFlag("llm.model", flags.Lookup("llm-model"))
		_ = v.BindPFlag("llm.base_url", flags.Lookup("llm-base-url"))
		_ = v.BindPFlag("llm.timeout", flags.Lookup("llm-timeout"))
		_ = v.BindPFlag("extractor.flatten_command", flags.Lookup("flatten-command"))
		_ = v.BindPFlag("extractor.output_dir", flags.Lookup("output-dir"))
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	settings.LLM.Provider = strings.ToLower(strings.TrimSpace(settings.LLM.Provider))
	settings.LLM.APIKey = strings.TrimSpace(settings.LLM.APIKey)
	settings.Log.Level = strings.ToLower(strings.TrimSpace(settings.Log.Level))

	settings.DataDir = expandHomeDir(settings.DataDir)
	if settings.DBPath == "" {
		settings.DBPath = filepath.Join(settings.DataDir, "reposcope.db")
	}
	settings.DBPath = expandHomeDir(settings.DBPath)
	if settings.Extractor.OutputDir == "" {
		settings.Extractor.OutputDir = filepath.Join(settings.DataDir, "outputs")
	}
	settings.Extractor.OutputDir = expandHomeDir(settings.Extractor.OutputDir)

	return &settings, nil
}

// readConfigFile merges an explicit config file (which must exist) or the
// optional config.yaml in Dir().
func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(expandHomeDir(path))
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	dir, err := Dir()
	if err != nil {
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// defaultDataDir returns the default directory for the database, index and outputs
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reposcope"
	}
	return filepath.Join(home, ".reposcope")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings rejects values no component can work with.
// A missing LLM credential is not an error; the analyzer runs offline.
func ValidateSettings(s *Settings) error {
	switch s.LLM.Provider {
	case ProviderOpenAI, ProviderOpenAICompatible, ProviderOllama, ProviderNone, "":
	default:
		return errors.New("llm-provider must be one of openai, openai-compatible, ollama, none; got: " + s.LLM.Provider)
	}

	if s.LLM.Timeout < 0 {
		return errors.New("llm-timeout cannot be negative")
	}

	if _, err := ParseLevel(s.Log.Level); err != nil {
		return err
	}

	if s.DataDir == "" {
		return errors.New("data-dir cannot be empty")
	}

	if strings.TrimSpace(s.Extractor.FlattenCommand) == "" {
		return errors.New("flatten-command cannot be empty")
	}

	return nil
}

// HasCredential reports whether the configured provider can be constructed.
func (s *Settings) HasCredential() bool {
	switch s.LLM.Provider {
	case ProviderNone:
		return false
	case ProviderOllama:
		return s.LLM.Model != ""
	default:
		return s.LLM.APIKey != ""
	}
}
