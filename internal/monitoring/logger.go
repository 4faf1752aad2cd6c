// Package monitoring holds the package-level diagnostic logger shared by the
// scene, visualization and page packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a missing-precondition warning. The caller returns early after it.
func Warnf(component, format string, v ...interface{}) {
	Logf("[%s] WARNING: "+format, append([]interface{}{component}, v...)...)
}

// Errorf logs an error that is handled locally and not propagated.
func Errorf(component, format string, v ...interface{}) {
	Logf("[%s] ERROR: "+format, append([]interface{}{component}, v...)...)
}
