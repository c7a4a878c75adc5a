package logging

import (
	"context"
	"log/slog"
	"strings"
)

// floorHandler drops records below floor before they reach the wrapped
// handler, whose own level stays the global minimum.
type floorHandler struct {
	slog.Handler
	floor slog.Level
}

func (h floorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.floor && h.Handler.Enabled(ctx, level)
}

func (h floorHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.floor {
		return nil
	}
	return h.Handler.Handle(ctx, record)
}

func (h floorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return floorHandler{Handler: h.Handler.WithAttrs(attrs), floor: h.floor}
}

func (h floorHandler) WithGroup(name string) slog.Handler {
	return floorHandler{Handler: h.Handler.WithGroup(name), floor: h.floor}
}

// withFloor replaces any floor already applied to logger.
func withFloor(logger *slog.Logger, level slog.Level) *slog.Logger {
	base := logger.Handler()
	if f, ok := base.(floorHandler); ok {
		base = f.Handler
	}
	return slog.New(floorHandler{Handler: base, floor: level})
}

// WithComponentOverride applies the level configured for component in
// overrides, if any. Keys match case-insensitively. Overrides can only raise
// the threshold above the base handler's level.
func WithComponentOverride(logger *slog.Logger, overrides map[string]string, component string) *slog.Logger {
	component = strings.ToLower(strings.TrimSpace(component))
	if logger == nil || len(overrides) == 0 || component == "" {
		return logger
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == component {
			return withFloor(logger, parseLevel(value))
		}
	}
	return logger
}
