package materialize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"geocluster/internal/cluster"
	"geocluster/internal/fileutil"
	"geocluster/internal/logging"
	"geocluster/internal/services"
)

const maxCollisionSuffix = 10000

// Options configures a Materializer.
type Options struct {
	// Verify re-reads every copy and compares checksums.
	Verify bool
	// DryRun plans placements without touching the filesystem.
	DryRun bool
	Logger *slog.Logger
}

// Placement records where one source file went.
type Placement struct {
	Source      string
	Destination string
	Bytes       int64
}

// Folder summarizes one output directory.
type Folder struct {
	Name       string
	Path       string
	Items      int
	Copied     int
	Bytes      int64
	Placements []Placement
}

// Failure is an item that could not be placed.
type Failure struct {
	Source      string
	Destination string
	Err         error
}

// Report describes a completed materialization.
type Report struct {
	DryRun   bool
	Folders  []Folder
	Failures []Failure
}

// Files returns the number of files copied (or planned).
func (r Report) Files() int {
	n := 0
	for _, f := range r.Folders {
		n += f.Copied
	}
	return n
}

// Bytes returns the number of bytes copied (or planned).
func (r Report) Bytes() int64 {
	var n int64
	for _, f := range r.Folders {
		n += f.Bytes
	}
	return n
}

// Materializer copies clusters into folders.
type Materializer struct {
	verify bool
	dryRun bool
	logger *slog.Logger
}

// New returns a Materializer.
func New(opts Options) *Materializer {
	return &Materializer{
		verify: opts.Verify,
		dryRun: opts.DryRun,
		logger: logging.NewComponentLogger(opts.Logger, "materialize"),
	}
}

// Materialize places clusters[i] under root/names[i]. Per-item failures are
// collected in the report; the returned error is reserved for invalid
// arguments and cancellation.
func (m *Materializer) Materialize(ctx context.Context, root string, clusters []*cluster.Cluster, names []string) (Report, error) {
	report := Report{DryRun: m.dryRun}
	if len(clusters) != len(names) {
		return report, fmt.Errorf("materialize: %d clusters but %d names", len(clusters), len(names))
	}
	for i, c := range clusters {
		if c.Len() == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		folder, failures, err := m.placeCluster(ctx, root, names[i], c)
		report.Folders = append(report.Folders, folder)
		report.Failures = append(report.Failures, failures...)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (m *Materializer) placeCluster(ctx context.Context, root, name string, c *cluster.Cluster) (Folder, []Failure, error) {
	dir := filepath.Join(root, name)
	folder := Folder{Name: name, Path: dir, Items: c.Len()}
	var failures []Failure

	if !m.dryRun {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			err = services.Wrap(services.ErrMaterialize, "materialize", "create folder", dir, err)
			m.logger.Warn("cannot create folder", logging.String("folder", dir), logging.Error(err))
			for _, item := range c.Items {
				failures = append(failures, Failure{Source: item.ID(), Destination: dir, Err: err})
			}
			return folder, failures, nil
		}
	}

	taken := make(map[string]struct{}, c.Len())
	for _, item := range c.Items {
		if err := ctx.Err(); err != nil {
			return folder, failures, err
		}
		placement, err := m.placeItem(dir, item.ID(), item.Name(), taken)
		if err != nil {
			err = services.Wrap(services.ErrMaterialize, "materialize", "copy", item.ID(), err)
			m.logger.Warn("copy failed",
				logging.Item(item.ID()),
				logging.String("folder", dir),
				logging.Error(err),
			)
			failures = append(failures, Failure{Source: item.ID(), Destination: placement.Destination, Err: err})
			continue
		}
		folder.Copied++
		folder.Bytes += placement.Bytes
		folder.Placements = append(folder.Placements, placement)
		m.logger.Debug("photo placed",
			logging.Item(item.ID()),
			logging.String("destination", placement.Destination),
		)
	}
	return folder, failures, nil
}

// placeItem copies src into dir under base, suffixing the stem with _1, _2,
// ... until it finds a name that is neither planned nor on disk.
func (m *Materializer) placeItem(dir, src, base string, taken map[string]struct{}) (Placement, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 0; n <= maxCollisionSuffix; n++ {
		candidate := base
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		key := strings.ToLower(candidate)
		if _, ok := taken[key]; ok {
			continue
		}
		dst := filepath.Join(dir, candidate)
		placement := Placement{Source: src, Destination: dst}

		if m.dryRun {
			info, err := os.Stat(src)
			if err != nil {
				return placement, err
			}
			taken[key] = struct{}{}
			placement.Bytes = info.Size()
			return placement, nil
		}

		copyFn := fileutil.CopyFile
		if m.verify {
			copyFn = fileutil.CopyFileVerified
		}
		written, err := copyFn(src, dst)
		if errors.Is(err, fs.ErrExist) {
			taken[key] = struct{}{}
			continue
		}
		if err != nil {
			return placement, err
		}
		taken[key] = struct{}{}
		placement.Bytes = written
		return placement, nil
	}
	return Placement{Source: src, Destination: filepath.Join(dir, base)}, fmt.Errorf("no free name for %s after %d attempts", base, maxCollisionSuffix)
}
