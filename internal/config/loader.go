package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of configuration files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		logger: logger,
	}
}

// LoadResult contains the result of loading a configuration file.
type LoadResult struct {
	Config *Config
	Errors []error
}

// LoadFromFile loads configuration from a YAML file.
// Returns the configuration and any non-fatal errors encountered.
// If the file doesn't exist, returns default configuration with no error.
func (l *Loader) LoadFromFile(path string) (*LoadResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: DefaultConfig(), Errors: []error{}}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	result := l.LoadFromString(string(content))
	result.Config.FunctionsFile = expandHome(result.Config.FunctionsFile)
	return result, nil
}

// LoadFromString loads configuration from a YAML document. Parse errors are
// reported in the result and the defaults are kept.
func (l *Loader) LoadFromString(source string) *LoadResult {
	result := &LoadResult{
		Config: DefaultConfig(),
		Errors: []error{},
	}

	if strings.TrimSpace(source) == "" {
		return result
	}

	parsed := DefaultConfig()
	if err := yaml.Unmarshal([]byte(source), parsed); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("parse error: %w", err))
		return result
	}

	if _, err := zapcore.ParseLevel(parsed.LogLevel); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("logLevel %q is not a valid level", parsed.LogLevel))
		parsed.LogLevel = result.Config.LogLevel
	}
	if len(parsed.ProjectMarkers) == 0 {
		parsed.ProjectMarkers = result.Config.ProjectMarkers
	}
	if parsed.FunctionsFile == "" {
		parsed.FunctionsFile = result.Config.FunctionsFile
	}

	l.logger.Debug("loaded configuration", zap.String("logLevel", parsed.LogLevel), zap.Strings("projectMarkers", parsed.ProjectMarkers))
	result.Config = parsed
	return result
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
