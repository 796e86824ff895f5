// Package logger configures the process-wide zerolog logger.
package logger

import (
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init sets the global level and output format. format is "json" or
// "console"; anything else falls back to json.
func Init(level, format string) {
	initWriter(os.Stdout, level, format)
}

func initWriter(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(out).With().Timestamp().Logger().Level(lvl)
	log.Logger = Logger
}

// WithRequestID returns a child logger tagged with the request id.
func WithRequestID(requestID string) zerolog.Logger {
	return Logger.With().Str("request_id", requestID).Logger()
}

// EmailFingerprint returns a short stable digest of a normalized email so
// logs can correlate submissions without storing the address.
func EmailFingerprint(email string) string {
	sum := blake2b.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}
