//go:build !linux && !windows && !darwin && !freebsd && !openbsd && !netbsd

package collector

func platformProbes(CommandRunner) []probe {
	return nil
}
