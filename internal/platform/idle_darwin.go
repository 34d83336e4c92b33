package platform

import (
	"fmt"
	"time"
)

type ioregProvider struct {
	output commandOutput
}

func newIdleProvider(output commandOutput) IdleProvider {
	return &ioregProvider{output: output}
}

func (provider *ioregProvider) IdleDuration() (time.Duration, error) {
	output, err := provider.output("ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	return parseHIDIdleTime(output)
}
