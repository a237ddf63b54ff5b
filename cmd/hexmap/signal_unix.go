// Unix signal handling for stopping the watch command.

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// signalChannel returns a channel that receives SIGINT and SIGTERM. It is
// buffered so a signal delivered during a reload is not dropped.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
