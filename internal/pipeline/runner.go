package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"geocluster/internal/cluster"
	"geocluster/internal/config"
	"geocluster/internal/ingest"
	"geocluster/internal/logging"
	"geocluster/internal/materialize"
	"geocluster/internal/naming"
	"geocluster/internal/photo"
	"geocluster/internal/preflight"
	"geocluster/internal/services"
	"geocluster/internal/services/geocode"
)

// Stage names, also used as log component override keys.
const (
	StagePreflight   = "preflight"
	StageIngest      = "ingest"
	StageCluster     = "cluster"
	StageMerge       = "merge"
	StageRelocate    = "relocate"
	StageName        = "name"
	StageMaterialize = "materialize"
)

// Request identifies the directories for one run.
type Request struct {
	Input  string
	Output string
	DryRun bool
}

// Result captures everything a run produced.
type Result struct {
	RunID               string
	Preflight           []preflight.Result
	Ingest              ingest.Stats
	Set                 cluster.Set
	SkippedComparisons  int
	ClustersBeforeMerge int
	Relocations         []cluster.Relocation
	Clusters            []*cluster.Cluster
	Names               []string
	Report              materialize.Report
	Elapsed             time.Duration
}

// Runner executes organize passes with a fixed configuration.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	reader   ingest.MetadataReader
	reverser naming.Reverser
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMetadataReader replaces the EXIF reader.
func WithMetadataReader(reader ingest.MetadataReader) Option {
	return func(r *Runner) {
		r.reader = reader
	}
}

// WithReverser replaces the HTTP geocoding client.
func WithReverser(reverser naming.Reverser) Option {
	return func(r *Runner) {
		r.reverser = reverser
	}
}

// NewRunner builds a runner. cfg must already be validated.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every stage for req.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, res.RunID)
	runLogger := logging.WithContext(ctx, r.logger)
	runLogger.Info("run started",
		logging.String("input", req.Input),
		logging.String("output", req.Output),
		logging.Meters("threshold_meters", r.cfg.Clustering.ThresholdMeters),
		logging.Bool("dry_run", req.DryRun),
	)

	err := r.stage(ctx, StagePreflight, func(_ context.Context, _ *slog.Logger) error {
		res.Preflight = preflight.RunAll(req.Input, req.Output)
		return preflight.Verify(res.Preflight)
	})
	if err != nil {
		return res, err
	}

	if !req.DryRun {
		unlock, err := r.acquireLock()
		if err != nil {
			return res, err
		}
		defer unlock()
	}

	var items []photo.Item
	err = r.stage(ctx, StageIngest, func(ctx context.Context, logger *slog.Logger) error {
		scanner := ingest.NewScanner(ingest.Options{
			Workers:    r.cfg.Ingest.Workers,
			Extensions: r.cfg.ExtensionSet(),
			Reader:     r.reader,
			Exclude:    []string{absOrSelf(req.Output)},
			Logger:     logger,
		})
		var err error
		items, res.Ingest, err = scanner.Scan(ctx, absOrSelf(req.Input))
		if err != nil {
			return err
		}
		logger.Info("ingest summary",
			logging.Int("candidates", res.Ingest.Candidates),
			logging.Int("ingested", res.Ingest.Ingested),
			logging.Int("located", res.Ingest.Located),
			logging.Int("timed", res.Ingest.Timed),
			logging.Int("no_metadata", res.Ingest.NoMetadata),
			logging.Int("unreadable", res.Ingest.Unreadable),
		)
		return nil
	})
	if err != nil {
		return res, err
	}

	err = r.stage(ctx, StageCluster, func(ctx context.Context, logger *slog.Logger) error {
		clusterer, err := cluster.NewClusterer(r.cfg.Clustering.ThresholdMeters, logger)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, StageCluster, "threshold", "", err)
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			clusterer.Add(item)
		}
		res.Set = clusterer.Snapshot()
		res.SkippedComparisons = clusterer.SkippedComparisons()
		logger.Info("clusters formed",
			logging.Int("clusters", len(res.Set.Clusters)),
			logging.Int("unclassified", res.Set.Unclassified.Len()),
			logging.Int("skipped_comparisons", res.SkippedComparisons),
		)
		return nil
	})
	if err != nil {
		return res, err
	}

	err = r.stage(ctx, StageMerge, func(_ context.Context, logger *slog.Logger) error {
		res.ClustersBeforeMerge = len(res.Set.Clusters)
		merger := cluster.MergerFor(r.cfg.Clustering.Merge, r.cfg.Clustering.MergeRadius())
		res.Set = merger.Merge(res.Set)
		logger.Info("merge applied",
			logging.String("strategy", r.cfg.Clustering.Merge),
			logging.Meters("radius_meters", r.cfg.Clustering.MergeRadius()),
			logging.Int("before", res.ClustersBeforeMerge),
			logging.Int("after", len(res.Set.Clusters)),
		)
		return nil
	})
	if err != nil {
		return res, err
	}

	if r.cfg.Relocation.Enabled {
		err = r.stage(ctx, StageRelocate, func(_ context.Context, logger *slog.Logger) error {
			window := r.cfg.Relocation.Window()
			set, moves, err := cluster.Relocate(res.Set, window, logger)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, StageRelocate, "window", "", err)
			}
			res.Set = set
			res.Relocations = moves
			logger.Info("relocation applied",
				logging.Duration("window", window),
				logging.Int("relocated", len(moves)),
				logging.Int("still_unclassified", set.Unclassified.Len()),
			)
			return nil
		})
		if err != nil {
			return res, err
		}
	}

	err = r.stage(ctx, StageName, func(ctx context.Context, logger *slog.Logger) error {
		res.Clusters = res.Set.All()
		namer, limit := r.namer(logger)
		res.Names = naming.NameAll(ctx, namer, res.Clusters, limit)
		return ctx.Err()
	})
	if err != nil {
		return res, err
	}

	err = r.stage(ctx, StageMaterialize, func(ctx context.Context, logger *slog.Logger) error {
		m := materialize.New(materialize.Options{
			Verify: r.cfg.Output.VerifyCopies,
			DryRun: req.DryRun,
			Logger: logger,
		})
		var err error
		res.Report, err = m.Materialize(ctx, req.Output, res.Clusters, res.Names)
		if err != nil {
			return err
		}
		attrs := []logging.Attr{
			logging.Int("folders", len(res.Report.Folders)),
			logging.Int("files", res.Report.Files()),
			logging.Int64("bytes", res.Report.Bytes()),
			logging.Int("failures", len(res.Report.Failures)),
		}
		if len(res.Report.Failures) > 0 {
			attrs = append(attrs, logging.Alert("copy_failures"))
			logger.Warn("materialization finished with failures", logging.Args(attrs...)...)
			return nil
		}
		logger.Info("materialization finished", logging.Args(attrs...)...)
		return nil
	})
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}

	runLogger.Info("run completed",
		logging.Duration("elapsed", res.Elapsed),
		logging.Int("folders", len(res.Report.Folders)),
		logging.Int("relocated", len(res.Relocations)),
	)
	return res, nil
}

// stage runs fn with a stage-scoped context and logger, logging start,
// completion and failure with the elapsed time.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context, *slog.Logger) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, r.logger)
	logger = logging.WithComponentOverride(logger, r.cfg.Logging.ComponentLevels, name)

	started := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := fn(stageCtx, logger); err != nil {
		attrs := logging.Args(
			logging.Duration("duration", time.Since(started)),
			logging.Error(err),
		)
		if services.IsFatal(err) {
			logger.Error("stage failed", append(attrs, logging.String(logging.FieldEventType, "stage_failed"))...)
		} else {
			logger.Warn("stage finished with failures", append(attrs, logging.String(logging.FieldEventType, "stage_partial"))...)
		}
		return err
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}

func (r *Runner) namer(logger *slog.Logger) (naming.Namer, int) {
	gc := r.cfg.Geocoding
	if !gc.Enabled {
		return naming.LiteralNamer{}, 1
	}
	reverser := r.reverser
	if reverser == nil {
		reverser = geocode.NewClient(geocode.Config{
			APIKey:         gc.APIKey,
			BaseURL:        gc.BaseURL,
			Language:       gc.Language,
			TimeoutSeconds: gc.TimeoutSeconds,
		}, geocode.WithRetryMaxAttempts(gc.RetryAttempts))
	}
	// One lookup may spend a full timeout on each attempt plus backoff.
	budget := time.Duration(gc.TimeoutSeconds*(gc.RetryAttempts+1)) * time.Second
	return naming.NewGeocodingNamer(reverser, budget, logger), gc.Concurrency
}

func (r *Runner) acquireLock() (func(), error) {
	path := r.cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrPrecondition, StagePreflight, "run lock", path, err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, StagePreflight, "run lock", path, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrPrecondition, StagePreflight, "run lock",
			fmt.Sprintf("another geocluster run holds %s", path), nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.String("path", path), logging.Error(err))
		}
	}, nil
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
