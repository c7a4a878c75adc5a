package ingest

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"geocluster/internal/geo"
	"geocluster/internal/logging"
)

// fakeReader serves canned metadata keyed by base name and sleeps a random
// amount so completions arrive out of order.
type fakeReader struct {
	mu    sync.Mutex
	byKey map[string]Metadata
	fail  map[string]error
	reads int
}

func (f *fakeReader) Read(path string) (Metadata, error) {
	time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	name := filepath.Base(path)
	if err, ok := f.fail[name]; ok {
		return Metadata{}, err
	}
	return f.byKey[name], nil
}

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", r, err)
		}
	}
}

var imageExts = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}}

func TestScanPreservesWalkOrderUnderConcurrency(t *testing.T) {
	root := t.TempDir()
	names := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg", "g.jpg", "h.jpg"}
	touch(t, root, names...)

	reader := &fakeReader{byKey: map[string]Metadata{}}
	for i, n := range names {
		reader.byKey[n] = Metadata{Coordinate: geo.New(10+float64(i), 20), Located: true}
	}
	scanner := NewScanner(Options{Workers: 4, Extensions: imageExts, Reader: reader, Logger: logging.NewNop()})

	for run := 0; run < 5; run++ {
		items, stats, err := scanner.Scan(context.Background(), root)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		got := make([]string, len(items))
		for i, item := range items {
			got[i] = item.Name()
		}
		if !reflect.DeepEqual(got, names) {
			t.Fatalf("run %d: unexpected order %v", run, got)
		}
		if stats.Ingested != len(names) || stats.Located != len(names) {
			t.Fatalf("unexpected stats: %+v", stats)
		}
	}
}

func TestScanFiltersHiddenSystemAndNonImageFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"a.jpg",
		"notes.txt",
		".hidden.jpg",
		".git/x.jpg",
		"@eaDir/thumb.jpg",
		"sub/B.JPEG",
		"z.png",
	)
	reader := &fakeReader{byKey: map[string]Metadata{}}
	scanner := NewScanner(Options{Workers: 2, Extensions: imageExts, Reader: reader, Logger: logging.NewNop()})

	items, stats, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	var got []string
	for _, item := range items {
		rel, _ := filepath.Rel(root, item.ID())
		got = append(got, filepath.ToSlash(rel))
	}
	want := []string{"a.jpg", "sub/B.JPEG", "z.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected items: got %v want %v", got, want)
	}
	if stats.Candidates != 3 {
		t.Fatalf("expected 3 candidates, got %d", stats.Candidates)
	}
	if stats.Ignored != 2 {
		t.Fatalf("expected notes.txt and .hidden.jpg ignored, got %d", stats.Ignored)
	}
	if stats.SkippedDirs != 2 {
		t.Fatalf("expected .git and @eaDir skipped, got %d", stats.SkippedDirs)
	}
}

func TestScanSkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.jpg", "out/b.jpg")
	scanner := NewScanner(Options{
		Extensions: imageExts,
		Reader:     &fakeReader{byKey: map[string]Metadata{}},
		Exclude:    []string{filepath.Join(root, "out")},
		Logger:     logging.NewNop(),
	})
	items, _, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 1 || items[0].Name() != "a.jpg" {
		t.Fatalf("expected only a.jpg, got %v", items)
	}
}

func TestScanSkipsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.jpg", "b.jpg", "c.jpg", "d.jpg")
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reader := &fakeReader{
		byKey: map[string]Metadata{
			"a.jpg": {Coordinate: geo.New(1, 2), Located: true, Timestamp: when},
			"d.jpg": {Timestamp: when},
		},
		fail: map[string]error{
			"b.jpg": ErrNoMetadata,
			"c.jpg": errors.New("permission denied"),
		},
	}
	scanner := NewScanner(Options{Workers: 3, Extensions: imageExts, Reader: reader, Logger: logging.NewNop()})

	items, stats, err := scanner.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 2 || items[0].Name() != "a.jpg" || items[1].Name() != "d.jpg" {
		t.Fatalf("unexpected items: %v", items)
	}
	if stats.NoMetadata != 1 || stats.Unreadable != 1 {
		t.Fatalf("unexpected failure counts: %+v", stats)
	}
	if stats.Located != 1 || stats.Timed != 2 {
		t.Fatalf("unexpected metadata counts: %+v", stats)
	}
	if items[1].Located() {
		t.Fatal("item without gps should not be located")
	}
}

func TestScanHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.jpg", "b.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scanner := NewScanner(Options{Extensions: imageExts, Reader: &fakeReader{}, Logger: logging.NewNop()})
	if _, _, err := scanner.Scan(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScanMissingRoot(t *testing.T) {
	scanner := NewScanner(Options{Logger: logging.NewNop()})
	if _, _, err := scanner.Scan(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestMetadataItemDropsOrigin(t *testing.T) {
	item := Metadata{Coordinate: geo.New(0, 0), Located: true}.Item("x.jpg")
	if item.Located() {
		t.Fatal("origin must not count as a position")
	}
}

func TestExifReaderRejectsFilesWithoutExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	if err := os.WriteFile(path, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := ExifReader{}.Read(path)
	if !errors.Is(err, ErrNoMetadata) {
		t.Fatalf("expected ErrNoMetadata, got %v", err)
	}
}

func TestExifReaderMissingFile(t *testing.T) {
	_, err := ExifReader{}.Read(filepath.Join(t.TempDir(), "missing.jpg"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
