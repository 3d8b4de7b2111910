package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// devDirName is the sandbox directory under the system temp dir.
const devDirName = "meteora-dev"

// IsDevRun checks if the current process is running via `go run` or `go test`.
// Both build their binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolveVaultPath returns the path a vault actually lives at. With forceTemp,
// the path is re-rooted under the sandbox so dev runs never touch a real
// vault, unless it already lies inside the system temp dir.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	if !forceTemp {
		if userPath == "" {
			return "."
		}
		return userPath
	}

	clean := filepath.Clean(userPath)
	if filepath.IsAbs(clean) {
		rel, err := filepath.Rel(os.TempDir(), clean)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return clean
		}
	}

	name := filepath.Base(clean)
	if userPath == "" || name == "." || name == string(filepath.Separator) || name == ".." {
		name = "default"
	}
	return filepath.Join(os.TempDir(), devDirName, name)
}
