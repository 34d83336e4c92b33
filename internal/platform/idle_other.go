//go:build !linux && !darwin && !windows

package platform

import "runtime"

func newIdleProvider(commandOutput) IdleProvider {
	return unsupportedIdleProvider{reason: runtime.GOOS}
}
