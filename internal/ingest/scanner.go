package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"geocluster/internal/logging"
	"geocluster/internal/photo"
	"geocluster/internal/services"
)

// systemDirs are folder names created by operating systems and NAS software
// that never hold user photos.
var systemDirs = map[string]struct{}{
	"$recycle.bin":              {},
	"system volume information": {},
	"lost+found":                {},
	"@eadir":                    {},
	"#recycle":                  {},
	"__macosx":                  {},
}

// Options configures a Scanner.
type Options struct {
	Workers    int
	Extensions map[string]struct{}
	Reader     MetadataReader
	// Exclude lists absolute directories that are never descended into.
	Exclude []string
	Logger  *slog.Logger
}

// Stats summarizes one scan.
type Stats struct {
	Candidates  int
	Ignored     int
	SkippedDirs int
	Ingested    int
	Located     int
	Timed       int
	NoMetadata  int
	Unreadable  int
}

// Scanner discovers and reads photos.
type Scanner struct {
	workers    int
	extensions map[string]struct{}
	reader     MetadataReader
	exclude    map[string]struct{}
	logger     *slog.Logger
}

// NewScanner builds a scanner; zero-valued options fall back to one worker,
// the EXIF reader and no extension filter.
func NewScanner(opts Options) *Scanner {
	s := &Scanner{
		workers:    opts.Workers,
		extensions: opts.Extensions,
		reader:     opts.Reader,
		exclude:    make(map[string]struct{}, len(opts.Exclude)),
		logger:     logging.NewComponentLogger(opts.Logger, "ingest"),
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	if s.reader == nil {
		s.reader = ExifReader{}
	}
	for _, dir := range opts.Exclude {
		if dir = strings.TrimSpace(dir); dir != "" {
			s.exclude[filepath.Clean(dir)] = struct{}{}
		}
	}
	return s
}

type readResult struct {
	md  Metadata
	err error
}

// Scan walks root and returns one item per readable photo in walk order.
func (s *Scanner) Scan(ctx context.Context, root string) ([]photo.Item, Stats, error) {
	paths, stats, err := s.discover(ctx, root)
	if err != nil {
		return nil, stats, err
	}

	results := make([]readResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			md, err := s.reader.Read(path)
			results[i] = readResult{md: md, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	items := make([]photo.Item, 0, len(paths))
	for i, res := range results {
		if res.err != nil {
			s.recordFailure(&stats, paths[i], res.err)
			continue
		}
		item := res.md.Item(paths[i])
		stats.Ingested++
		if item.Located() {
			stats.Located++
		}
		if item.Timed() {
			stats.Timed++
		}
		s.logger.Debug("photo ingested",
			logging.Item(paths[i]),
			logging.Bool("located", item.Located()),
			logging.Bool("timed", item.Timed()),
		)
		items = append(items, item)
	}
	return items, stats, nil
}

func (s *Scanner) recordFailure(stats *Stats, path string, err error) {
	err = services.Wrap(services.ErrUnreadable, "ingest", "read metadata", "", err)
	if errors.Is(err, ErrNoMetadata) {
		stats.NoMetadata++
		s.logger.Debug("skipping file without exif metadata",
			logging.Item(path),
			logging.Error(err),
		)
		return
	}
	stats.Unreadable++
	s.logger.Warn("skipping unreadable file",
		logging.Item(path),
		logging.Error(err),
	)
}

func (s *Scanner) discover(ctx context.Context, root string) ([]string, Stats, error) {
	var stats Stats
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.SkippedDirs++
			s.logger.Warn("skipping unreadable path",
				logging.Item(path),
				logging.Error(walkErr),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && s.skipDir(path, d.Name()) {
				stats.SkippedDirs++
				s.logger.Debug("skipping directory", logging.Item(path))
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") || !s.wanted(d.Name()) {
			stats.Ignored++
			return nil
		}
		stats.Candidates++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, stats, nil
}

func (s *Scanner) skipDir(path, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if _, ok := systemDirs[strings.ToLower(name)]; ok {
		return true
	}
	_, ok := s.exclude[filepath.Clean(path)]
	return ok
}

func (s *Scanner) wanted(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
