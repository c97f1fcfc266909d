// Package telemetry provides the package-level diagnostic logger shared by
// the decode-and-reconstruction pipeline. Logging itself is an external
// collaborator (spec §1); this is only the seam the rest of the pipeline
// logs through.
package telemetry

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or the CLI driver can redirect or mute
// it without threading a logger through every constructor.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
