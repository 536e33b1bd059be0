package monitoring

import "log"

// Logf is the package-level diagnostic logger shared by the engine handle,
// the archive and the binding server. It defaults to log.Printf and may be
// replaced by SetLogger. The batch driver mutes it unless -v is given so
// that stderr carries only the profile banner.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Mute silences Logf and returns a func that restores the previous logger.
func Mute() (restore func()) {
	prev := Logf
	SetLogger(nil)
	return func() { Logf = prev }
}
