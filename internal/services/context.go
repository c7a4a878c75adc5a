package services

import "context"

type scopeKey struct{}

// scope is the run metadata carried through a pipeline context.
type scope struct {
	runID string
	stage string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithRunID annotates ctx with the run identifier, keeping any stage.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	s := scopeFrom(ctx)
	s.runID = id
	return context.WithValue(ctx, scopeKey{}, s)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id := scopeFrom(ctx).runID
	return id, id != ""
}

// WithStage annotates ctx with the pipeline stage name, replacing any
// enclosing stage.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	s := scopeFrom(ctx)
	s.stage = stage
	return context.WithValue(ctx, scopeKey{}, s)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	stage := scopeFrom(ctx).stage
	return stage, stage != ""
}
