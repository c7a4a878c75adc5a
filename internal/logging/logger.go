package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"geocluster/internal/config"
)

// RunLogName is the file NewFromConfig appends JSON lines to inside the log
// directory.
const RunLogName = "geocluster.log"

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format applies to stdout and stderr sinks: "console" or "json".
	Format string
	// FileFormat applies to file sinks and defaults to Format.
	FileFormat string
	// OutputPaths lists sinks: "stdout", "stderr" or file paths.
	OutputPaths []string
	// AddSource forces caller locations; debug level always adds them.
	AddSource bool
}

// New constructs a slog logger that writes every record to each sink in
// opts.OutputPaths.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.AddSource || level.Level() <= slog.LevelDebug

	format, err := formatName(opts.Format, "console")
	if err != nil {
		return nil, err
	}
	fileFormat, err := formatName(opts.FileFormat, format)
	if err != nil {
		return nil, err
	}

	var sinks fanoutHandler
	seen := make(map[string]struct{})
	for _, path := range opts.OutputPaths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		w, isFile, err := openSink(path)
		if err != nil {
			return nil, err
		}
		sinkFormat := format
		if isFile {
			sinkFormat = fileFormat
		}
		sinks = append(sinks, newSinkHandler(w, sinkFormat, level, addSource))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, newSinkHandler(os.Stderr, format, level, addSource))
	}

	if len(sinks) == 1 {
		return slog.New(sinks[0]), nil
	}
	return slog.New(sinks), nil
}

// NewFromConfig logs to stderr in the configured format and, when a log
// directory is set, appends JSON lines to RunLogName inside it. When verbose
// is set the level drops to debug regardless of configuration.
func NewFromConfig(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	opts := Options{Level: "info", Format: "console", FileFormat: "json", OutputPaths: []string{"stderr"}}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.Format = cfg.Logging.Format
		if dir := cfg.Paths.LogDir; dir != "" {
			opts.OutputPaths = append(opts.OutputPaths, filepath.Join(dir, RunLogName))
		}
	}
	if verbose {
		opts.Level = "debug"
	}
	return New(opts)
}

// parseLevel maps a configured level name onto a slog level. Unknown names
// resolve to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func formatName(value, fallback string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(value))
	switch format {
	case "":
		return fallback, nil
	case "console", "json":
		return format, nil
	default:
		return "", fmt.Errorf("log format: unsupported value %q", value)
	}
}

func newSinkHandler(w io.Writer, format string, level slog.Leveler, addSource bool) slog.Handler {
	if format == "json" {
		return newJSONHandler(w, level, addSource)
	}
	return newConsoleHandler(w, level, addSource, isTerminal(w))
}

func openSink(path string) (io.Writer, bool, error) {
	switch path {
	case "stdout":
		return os.Stdout, false, nil
	case "stderr":
		return os.Stderr, false, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, false, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, true, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
