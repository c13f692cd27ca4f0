package core

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the data directory when set.
const HomeEnv = "CTXREF_HOME"

type Paths struct {
	HomeDir       string
	DataDir       string
	LogFile       string
	SessionFile   string
	ConfigFile    string
	FunctionsFile string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths == nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}

		dataDir := os.Getenv(HomeEnv)
		if dataDir == "" {
			dataDir = filepath.Join(homeDir, ".ctxref")
		}

		defaultPaths = &Paths{
			HomeDir:       homeDir,
			DataDir:       dataDir,
			LogFile:       filepath.Join(dataDir, "ctxref.log"),
			SessionFile:   filepath.Join(dataDir, "session.db"),
			ConfigFile:    filepath.Join(dataDir, "config.yaml"),
			FunctionsFile: filepath.Join(dataDir, "functions.sh"),
		}

		err = os.MkdirAll(defaultPaths.DataDir, 0755)
		if err != nil {
			panic(err)
		}
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

func SessionFile() string {
	ensureDefaultPaths()
	return defaultPaths.SessionFile
}

func ConfigFile() string {
	ensureDefaultPaths()
	return defaultPaths.ConfigFile
}

func FunctionsFile() string {
	ensureDefaultPaths()
	return defaultPaths.FunctionsFile
}

// ResetPaths clears the cached paths, forcing them to be reinitialized.
// This is primarily used for testing purposes.
func ResetPaths() {
	defaultPaths = nil
}
