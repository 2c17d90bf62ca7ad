package utils

import (
	"os"
	"os/user"
	"path/filepath"
)

// AppDirName holds per-user walletd state under the home directory.
const AppDirName = ".hive-wallet"

func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// AppDir is ~/.hive-wallet, or a relative .hive-wallet without a home.
func AppDir() string {
	home := HomeDir()
	if home == "" {
		return AppDirName
	}
	return filepath.Join(home, AppDirName)
}

// ProjectRoot walks up from startDir to the nearest directory with a go.mod.
func ProjectRoot(startDir string) (string, bool) {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// FileExists reports whether path names a regular file.
func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
