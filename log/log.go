// Package log provides logging for git-lfs-client.
package log

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/git-lfs-client/config"
	"github.com/charmbracelet/log"
	"github.com/rubyist/tracerx"
)

func init() {
	// Wire traces follow git's GIT_TRACE convention, like git-lfs does.
	tracerx.DefaultKey = "GIT"
	tracerx.Prefix = "trace git-lfs-client: "
}

// NewLogger returns a new logger configured by cfg. The returned file, if
// any, is the log file and must be closed by the caller.
func NewLogger(cfg *config.Config) (*log.Logger, *os.File, error) {
	if cfg == nil {
		return nil, nil, config.ErrNilConfig
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateOnly,
	})

	if cfg.Log.Level != "" {
		lvl, err := log.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, nil, err
		}
		logger.SetLevel(lvl)
	}

	switch {
	case config.IsVerbose():
		logger.SetReportCaller(true)
		fallthrough
	case config.IsDebug():
		logger.SetLevel(log.DebugLevel)
	}

	if cfg.Log.TimeFormat != "" {
		logger.SetTimeFormat(cfg.Log.TimeFormat)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	case "text":
		logger.SetFormatter(log.TextFormatter)
	}

	var f *os.File
	if cfg.Log.Path != "" {
		var err error
		f, err = os.OpenFile(cfg.Log.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}
		logger.SetOutput(f)
	}

	return logger, f, nil
}
