package config

import (
	"fmt"
	"os"
)

// Exitf reports a fatal startup failure on stderr and terminates the process
// with exit code 1. Commands call it before the logger is configured, so the
// message goes out bare rather than through the log prefix.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
