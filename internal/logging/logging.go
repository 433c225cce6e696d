// Package logging provides debug logging and log destination setup for the
// relay. Everything else logs through the standard library logger with
// INFO:/WARN:/ERROR: prefixes.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// DebugEnabled controls whether Debug() produces output.
// Set via -debug flag or DEBUG=1 environment variable.
var DebugEnabled bool

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

// Setup points the standard logger at logPath. When alsoStderr is set the
// output is mirrored to stderr. The returned closer is the log file.
func Setup(logPath string, alsoStderr bool) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", logPath, err)
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	if alsoStderr {
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	} else {
		log.SetOutput(logFile)
	}
	return logFile, nil
}
