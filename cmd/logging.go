package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// setupLogger creates the logger for one command. Logs go to logFile when
// set, else to stderr, except for commands that own the terminal (tui),
// where stderr output would tear the screen and logs are dropped.
func setupLogger(logFile, logLevel, command string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || logLevel == "" {
		level = zerolog.WarnLevel
	}

	var output io.Writer
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = stderrFor(command)
		} else {
			output = f
		}
	default:
		output = stderrFor(command)
	}

	// Pretty console output when a human reads stderr
	if output == os.Stderr {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).
		Level(level).
		With().
		Timestamp()
	if command != "" {
		ctx = ctx.Str("command", command)
	}
	return ctx.Logger()
}

// stderrFor returns the fallback log destination for command
func stderrFor(command string) io.Writer {
	if ownsTerminal(command) {
		return io.Discard
	}
	return os.Stderr
}

func ownsTerminal(command string) bool {
	return command == "tui"
}
