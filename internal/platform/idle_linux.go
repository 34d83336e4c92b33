package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

type xprintidleProvider struct {
	path   string
	output commandOutput
}

func newIdleProvider(output commandOutput) IdleProvider {
	if strings.EqualFold(os.Getenv("XDG_SESSION_TYPE"), "wayland") {
		return unsupportedIdleProvider{reason: "wayland session"}
	}
	path, err := exec.LookPath("xprintidle")
	if err != nil {
		return unsupportedIdleProvider{reason: "xprintidle not installed"}
	}
	return &xprintidleProvider{path: path, output: output}
}

func (provider *xprintidleProvider) IdleDuration() (time.Duration, error) {
	output, err := provider.output(provider.path)
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(output)
}
