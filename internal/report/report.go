// Package report sends errors to Sentry. Every function is a no-op until Setup has
// been called with a DSN.
package report

import (
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

// Setup initializes the Sentry client. An empty dsn leaves reporting disabled.
func Setup(dsn, env, version string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     version,
	}); err != nil {
		return err
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("env", env)
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// ReportError reports the error with the given severity level, defaulting to
// sentry.LevelError. Tags are attached as key/value pairs.
func ReportError(err error, level sentry.Level, tags map[string]string) {
	if err == nil {
		return
	}
	if level == "" {
		level = sentry.LevelError
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits briefly for queued events to be sent.
func Flush() {
	sentry.Flush(2 * time.Second)
}
