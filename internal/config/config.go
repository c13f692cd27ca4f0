// Package config provides configuration management for ctxref.
// It handles loading and parsing of the YAML configuration file and
// filling in defaults for anything the file leaves out.
package config

import (
	"github.com/atinylittleshell/ctxref/internal/core"
	"github.com/atinylittleshell/ctxref/internal/project"
)

// Config holds all ctxref configuration.
type Config struct {
	// LogLevel controls logging verbosity
	LogLevel string `yaml:"logLevel"`

	// FunctionsFile is a bash file whose functions can be referenced as context
	FunctionsFile string `yaml:"functionsFile"`

	// ProjectMarkers are the entries that mark a project root
	ProjectMarkers []string `yaml:"projectMarkers"`

	// Model is the model name placed in built requests
	Model string `yaml:"model"`

	// SystemPrompt precedes the merged context in the system message
	SystemPrompt string `yaml:"systemPrompt"`

	// IncludeGitStatus adds git status to the base context of requests
	IncludeGitStatus bool `yaml:"includeGitStatus"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		FunctionsFile:  core.FunctionsFile(),
		ProjectMarkers: append([]string(nil), project.DefaultMarkers...),
		Model:          "gpt-4o-mini",
		SystemPrompt:   "You are a helpful assistant. Use the provided context when it is relevant.",
	}
}
