package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the rotating debug log kept under the contentforge home.
const LogFileName = "contentforge.log"

var (
	// DevMode mirrors debug lines to stderr as well as the log file.
	DevMode = os.Getenv("CONTENTFORGE_DEBUG") == "1"
	// Logger is the shared logger instance. It discards output until Setup runs.
	Logger = log.New(io.Discard, "", log.LstdFlags)
)

// Setup points the shared logger at <dir>/contentforge.log. The returned closer
// flushes the rotating writer; callers defer it for the life of the command.
func Setup(dir string, verbose bool) io.Closer {
	if verbose {
		DevMode = true
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    1, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	var out io.Writer = rotator
	if DevMode {
		out = io.MultiWriter(rotator, os.Stderr)
	}
	Logger.SetOutput(out)
	Logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return rotator
}

// DevLog logs only in verbose mode.
func DevLog(format string, args ...interface{}) {
	if DevMode {
		Logger.Printf("[DEV] "+format, args...)
	}
}

// UserLog records user-visible actions in the log file.
func UserLog(format string, args ...interface{}) {
	Logger.Printf("[USER] "+format, args...)
}

// ErrorLog logs errors (always written).
func ErrorLog(format string, args ...interface{}) {
	Logger.Printf("[ERROR] "+format, args...)
}
