package env

import (
	"os"
	"path/filepath"
)

// Build information, set with -ldflags "-X apphost/internal/env.Version=..."
var (
	Version       = "dev"
	BuildTime     = ""
	BuildCommitId = ""
)

// (default: %USERPROFILE%/.apphost on Windows, $HOME/.apphost on Linux)
var ApphostDir string = GetApphostDir()

/**
 * Get apphost directory path
 * @returns {string} Returns apphost directory path, searched for apphost.yaml
 */
func GetApphostDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".apphost")
}
