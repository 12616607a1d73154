//go:build windows
// +build windows

package main

import (
	"os"
)

func handlePlatformSignal(sig os.Signal, a *app) {
	a.logger.Debug("Ignoring signal %v", sig)
}
