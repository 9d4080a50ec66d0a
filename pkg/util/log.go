package util

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevelEnv sets the log level when no command-line flag selects one.
const LogLevelEnv = "PORTFINDER_LOG_LEVEL"

// Logger is shared by every package; audit events go through it too.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(textFormatter())
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// LogOptions selects level and format for one command run.
type LogOptions struct {
	// Level wins over LogLevelEnv. Empty defers to the environment.
	Level string
	// Default applies when neither Level nor LogLevelEnv is set.
	Default string
	// JSON switches to one JSON object per line for the HTTP server.
	JSON bool
}

// ConfigureLogging applies opts to Logger. An unknown level leaves the
// logger unchanged.
func ConfigureLogging(opts LogOptions) error {
	level := opts.Level
	if level == "" {
		level = strings.TrimSpace(os.Getenv(LogLevelEnv))
	}
	if level == "" {
		level = opts.Default
	}
	if level == "" {
		level = "warn"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return NewFormatError("log level", level)
	}
	Logger.SetLevel(lvl)
	if opts.JSON {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		})
	} else {
		Logger.SetFormatter(textFormatter())
	}
	return nil
}

// SetLogOutput sets the log output destination
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithHost returns a logger scoped to one fleet member.
func WithHost(host string) *logrus.Entry {
	return Logger.WithField("host", host)
}

// WithInterface scopes to one port on host.
func WithInterface(host, intf string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{"host": host, "interface": intf})
}

// WithMAC scopes to a MAC address as seen from owner (a switch or router).
func WithMAC(owner, mac string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{"host": owner, "mac": mac})
}

// WithRequest tags entries with an HTTP request id. An empty id is omitted.
func WithRequest(id string) *logrus.Entry {
	if id == "" {
		return logrus.NewEntry(Logger)
	}
	return Logger.WithField("request_id", id)
}

// WithOperation returns a logger with operation context
func WithOperation(operation string) *logrus.Entry {
	return Logger.WithField("operation", operation)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}
