package transport

import (
	"os"
	"runtime"
	"sort"
	"strings"
)

// Environment inheritance for spawned child processes. Only a small
// platform-dependent allowlist is passed through; everything else must be
// added explicitly.

var unixInheritedEnv = []string{
	"HOME", "LOGNAME", "PATH", "SHELL", "TERM", "USER",
}

var windowsInheritedEnv = []string{
	"APPDATA", "HOMEDRIVE", "HOMEPATH", "LOCALAPPDATA", "PATH",
	"PROCESSOR_ARCHITECTURE", "SYSTEMDRIVE", "SYSTEMROOT", "TEMP",
	"USERNAME", "USERPROFILE",
}

// DefaultInheritedEnv returns the names of the environment variables a
// child process inherits on the current platform.
func DefaultInheritedEnv() []string {
	if runtime.GOOS == "windows" {
		return windowsInheritedEnv
	}
	return unixInheritedEnv
}

// buildEnviron assembles the child environment: the platform allowlist
// from the current process plus explicit additions. Inherited values that
// begin with "()" are dropped; they are shell function exports, not data.
func buildEnviron(extra map[string]string) []string {
	environ := make([]string, 0, len(DefaultInheritedEnv())+len(extra))
	for _, key := range DefaultInheritedEnv() {
		if _, overridden := extra[key]; overridden {
			continue
		}
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if strings.HasPrefix(value, "()") {
			continue
		}
		environ = append(environ, key+"="+value)
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		environ = append(environ, key+"="+extra[key])
	}
	return environ
}
