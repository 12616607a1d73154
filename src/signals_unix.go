//go:build !windows
// +build !windows

package main

import (
	"syscall"
)

var platformSignals = []syscall.Signal{
	syscall.SIGUSR1, // Rotate log files
	syscall.SIGUSR2, // Toggle debug mode
}
