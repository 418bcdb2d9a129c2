//go:build !windows

package agentconfig

import (
	"os"
	"runtime"
)

func installAutostart(exe string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	path, content, err := autostartFile(runtime.GOOS, home, exe)
	if err != nil {
		return err
	}

	return writeAutostartFile(path, content)
}
