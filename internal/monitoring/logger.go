// Package monitoring carries the process-wide diagnostic logging seam.
package monitoring

import "log"

// Logf is the diagnostic logger used across the daemon. It defaults to
// log.Printf; tests replace it through SetLogger to capture or mute output.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
