package platform

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procGetLastInputInfo = windows.NewLazySystemDLL("user32.dll").NewProc("GetLastInputInfo")

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

type lastInputProvider struct{}

func newIdleProvider(commandOutput) IdleProvider {
	if err := procGetLastInputInfo.Find(); err != nil {
		return unsupportedIdleProvider{reason: err.Error()}
	}
	return lastInputProvider{}
}

func (lastInputProvider) IdleDuration() (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	result, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if result == 0 {
		return 0, fmt.Errorf("get last input info: %w", err)
	}

	// dwTime wraps with the 32-bit tick count.
	now := uint32(windows.GetTickCount64())
	idleMillis := now - info.dwTime
	return time.Duration(idleMillis) * time.Millisecond, nil
}
