package aiagent

import (
	"os"
	"path/filepath"
	"runtime"
)

// versionManagerDirs lists the JavaScript-ecosystem version manager shim
// directories to probe under the user's home, following kcli's own
// resolveKCLIBinary fallback-search style of trying a fixed list of
// well-known locations before giving up.
var versionManagerDirs = []string{
	".nvm/current/bin",
	".asdf/shims",
	".local/share/fnm/aliases/default/bin",
	".volta/bin",
	".local/share/mise/shims",
}

// commonBinDirs are per-OS locations package managers install CLIs into,
// beyond what's typically already on PATH in a spawned GUI process.
func commonBinDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/opt/homebrew/bin", "/usr/local/bin"}
	case "linux":
		return []string{"/usr/local/bin", "/snap/bin"}
	default:
		return nil
	}
}

// BuildPATH computes the augmented PATH passed to every AI agent child
// process: the current PATH, then per-OS common bin directories, then any
// version-manager shim directory that exists under the user's home. This
// is computed once per invocation, not cached, since a user can install a
// version manager between sessions.
func BuildPATH() string {
	existing := os.Getenv("PATH")
	dirs := []string{existing}

	for _, d := range commonBinDirs() {
		if _, err := os.Stat(d); err == nil {
			dirs = append(dirs, d)
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		for _, rel := range versionManagerDirs {
			d := filepath.Join(home, rel)
			if _, err := os.Stat(d); err == nil {
				dirs = append(dirs, d)
			}
		}
	}

	out := dirs[0]
	for _, d := range dirs[1:] {
		out += string(os.PathListSeparator) + d
	}
	return out
}
