package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"geocluster/internal/geo"
	"geocluster/internal/ingest"
	"geocluster/internal/pipeline"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type mapReader map[string]ingest.Metadata

func (m mapReader) Read(path string) (ingest.Metadata, error) {
	md, ok := m[filepath.Base(path)]
	if !ok {
		return ingest.Metadata{}, ingest.ErrNoMetadata
	}
	return md, nil
}

type cliTestEnv struct {
	home       string
	configPath string
	logDir     string
	input      string
	output     string
	reader     mapReader
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Chdir(base)
	t.Setenv("GEOCLUSTER_API_KEY", "")
	os.Unsetenv("GEOCLUSTER_API_KEY")

	env := &cliTestEnv{
		home:       home,
		configPath: filepath.Join(base, "geocluster-test.toml"),
		logDir:     filepath.Join(base, "logs"),
		input:      filepath.Join(base, "in"),
		output:     filepath.Join(base, "out"),
		reader: mapReader{
			"a.jpg": {Coordinate: geo.New(48.8566, 2.3522), Located: true, Timestamp: baseTime},
			"b.jpg": {Coordinate: geo.New(48.8567, 2.3523), Located: true, Timestamp: baseTime.Add(10 * time.Minute)},
			"c.jpg": {Coordinate: geo.New(40.7128, -74.0060), Located: true, Timestamp: baseTime.Add(5 * time.Hour)},
			"d.jpg": {Timestamp: baseTime.Add(20 * time.Minute)},
		},
	}
	for _, dir := range []string{env.input, env.output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	for name := range env.reader {
		if err := os.WriteFile(filepath.Join(env.input, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeTestConfig(t, env.configPath, env.logDir)
	return env
}

func writeTestConfig(t *testing.T, path, logDir string) {
	t.Helper()
	content := fmt.Sprintf("[paths]\nlog_dir = %q\n\n[clustering]\nthreshold_meters = 1000\n\n[logging]\nlevel = \"error\"\n", logDir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args []string, opts ...pipeline.Option) (string, string, error) {
	t.Helper()
	opts = append([]pipeline.Option{pipeline.WithMetadataReader(e.reader)}, opts...)
	return runCLI(t, args, e.configPath, opts...)
}

func (e *cliTestEnv) organizeArgs(extra ...string) []string {
	return append([]string{"organize", "--input", e.input, "--output", e.output}, extra...)
}

func runCLI(t *testing.T, args []string, configPath string, opts ...pipeline.Option) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts...)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
