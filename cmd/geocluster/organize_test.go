package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"geocluster/internal/geo"
	"geocluster/internal/pipeline"
	"geocluster/internal/services"
	"geocluster/internal/services/geocode"
	"geocluster/internal/testsupport"
)

type reverserFunc func(context.Context, geo.Coordinate) (geocode.Place, error)

func (fn reverserFunc) Reverse(ctx context.Context, c geo.Coordinate) (geocode.Place, error) {
	return fn(ctx, c)
}

func TestOrganizeRelocatesAndPrintsSummary(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, env.organizeArgs("--threshold", "500", "--relocate", "--time", "3600"))
	if err != nil {
		t.Fatalf("organize: %v", err)
	}

	want := []string{
		"40.7128_-74.006/c.jpg",
		"48.8566_2.3522/a.jpg",
		"48.8566_2.3522/b.jpg",
		"48.8566_2.3522/d.jpg",
	}
	if got := testsupport.Tree(t, env.output); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected output tree:\n got %v\nwant %v", got, want)
	}
	requireContains(t, stdout, "== Organized ==")
	requireContains(t, stdout, "48.8566_2.3522")
	requireContains(t, stdout, "40.7128_-74.006")
	requireContains(t, stdout, "1 photos by capture time")
	if strings.Contains(stdout, "UNCLASSIFIED") {
		t.Fatalf("expected no unclassified folder after relocation, got:\n%s", stdout)
	}
	if strings.Contains(stdout, "\x1b[") {
		t.Fatalf("expected plain output for a non-terminal writer")
	}
}

func TestOrganizeWithoutRelocationKeepsUnclassified(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, env.organizeArgs("--threshold", "500"))
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	requireContains(t, stdout, "1 photos in UNCLASSIFIED")
	got := testsupport.Tree(t, env.output)
	if len(got) != 4 || got[3] != "UNCLASSIFIED/d.jpg" {
		t.Fatalf("unexpected output tree: %v", got)
	}
}

func TestOrganizeHumanReadableNames(t *testing.T) {
	env := setupCLITestEnv(t)
	reverser := reverserFunc(func(_ context.Context, c geo.Coordinate) (geocode.Place, error) {
		if c.Lat > 45 {
			return geocode.Place{Address: geocode.Address{City: "Paris", Country: "France"}}, nil
		}
		return geocode.Place{Address: geocode.Address{City: "New York", Country: "United States"}}, nil
	})

	stdout, _, err := env.run(t,
		env.organizeArgs("--threshold", "500", "--human-readable", "--api-key", "test-key"),
		pipeline.WithReverser(reverser),
	)
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	requireContains(t, stdout, "Paris, France")
	if _, err := os.Stat(filepath.Join(env.output, "New York, United States", "c.jpg")); err != nil {
		t.Fatalf("expected geocoded folder: %v", err)
	}
}

func TestOrganizeDryRunLeavesOutputEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, env.organizeArgs("--dry-run"))
	if err != nil {
		t.Fatalf("organize --dry-run: %v", err)
	}
	requireContains(t, stdout, "Plan (dry run)")
	if got := testsupport.Tree(t, env.output); len(got) != 0 {
		t.Fatalf("dry run wrote files: %v", got)
	}
}

func TestOrganizeProximityMerge(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, env.organizeArgs(
		"--threshold", "5", "--merge", "Proximity", "--merge-threshold", "20", "--dry-run",
	))
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	requireContains(t, stdout, "3 clusters into 2")
}

func TestOrganizeRejectsNonEmptyOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(filepath.Join(env.output, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, stderr, err := env.run(t, env.organizeArgs())
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	requireContains(t, stderr, "== Preflight ==")
	requireContains(t, stderr, "[ERROR]")
	if got := testsupport.Tree(t, env.output); !reflect.DeepEqual(got, []string{"keep.txt"}) {
		t.Fatalf("output was modified: %v", got)
	}
}

func TestOrganizeFlagValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "relocate without time", args: []string{"--relocate"}, wantMsg: "--relocate requires --time"},
		{name: "negative time", args: []string{"--relocate", "--time=-5"}, wantMsg: "--time must be zero or more"},
		{name: "window beyond duration range", args: []string{"--relocate", "--time=10000000000"}, wantMsg: "window_seconds must be at most"},
		{name: "human readable without key", args: []string{"--human-readable"}, wantMsg: "requires an API key"},
		{name: "unknown merge", args: []string{"--merge", "kmeans"}, wantMsg: "clustering.merge"},
		{name: "zero threshold", args: []string{"--threshold", "0"}, wantMsg: "threshold_meters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			_, _, err := env.run(t, env.organizeArgs(tt.args...))
			if err == nil {
				t.Fatal("expected error")
			}
			requireContains(t, err.Error(), tt.wantMsg)
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if code := services.ExitCode(err); code != services.ExitConfig {
				t.Fatalf("expected exit code %d, got %d", services.ExitConfig, code)
			}
			if got := testsupport.Tree(t, env.output); len(got) != 0 {
				t.Fatalf("output was modified: %v", got)
			}
		})
	}
}

func TestOrganizeRequiresInputAndOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, []string{"organize", "--input", env.input})
	if err == nil {
		t.Fatal("expected missing --output to fail")
	}
	requireContains(t, err.Error(), "output")
}

func TestOrganizeUsesEnvironmentAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("GEOCLUSTER_API_KEY", "from-env")
	var calls atomic.Int32
	reverser := reverserFunc(func(context.Context, geo.Coordinate) (geocode.Place, error) {
		calls.Add(1)
		return geocode.Place{Address: geocode.Address{Country: "Somewhere"}}, nil
	})

	_, _, err := env.run(t, env.organizeArgs("--threshold", "500", "--human-readable"), pipeline.WithReverser(reverser))
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	if calls.Load() == 0 {
		t.Fatal("expected geocoding lookups")
	}
}
