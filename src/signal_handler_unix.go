//go:build !windows
// +build !windows

package main

import (
	"os"
	"syscall"
)

func handlePlatformSignal(sig os.Signal, a *app) {
	switch sig {
	case syscall.SIGUSR1:
		a.logger.Info("📝 Received SIGUSR1, rotating log files...")
		if err := a.logger.RotateLogs(); err != nil {
			a.logger.Error("Failed to rotate logs: %v", err)
		}
	case syscall.SIGUSR2:
		a.toggleDebug()
	}
}
