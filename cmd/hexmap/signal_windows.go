// Windows signal handling for stopping the watch command. Only os.Interrupt
// exists here; Ctrl+Break and console close arrive as os.Interrupt too.

//go:build windows

package main

import (
	"os"
	"os/signal"
)

// signalChannel returns a buffered channel that receives os.Interrupt.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}
