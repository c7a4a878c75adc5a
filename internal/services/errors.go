package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrecondition  = errors.New("precondition failed")
	ErrUnreadable    = errors.New("unreadable item")
	ErrNaming        = errors.New("naming failure")
	ErrMaterialize   = errors.New("materialization failure")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort a run. Only precondition and
// configuration failures are fatal; everything else is isolated per item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPrecondition) || errors.Is(err, ErrConfiguration)
}

// Exit codes reported by the CLI for each failure class.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitConfig       = 2
	ExitPrecondition = 3
	ExitPartial      = 4
)

// ExitCode maps a run error to the process exit status. Partial runs, where
// some copies failed but the rest landed, are distinguished from runs that
// never started.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfig
	case errors.Is(err, ErrPrecondition):
		return ExitPrecondition
	case errors.Is(err, ErrMaterialize):
		return ExitPartial
	default:
		return ExitFailure
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
