package preflight

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"geocluster/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every precondition for a run from input into output.
func RunAll(input, output string) []Result {
	return []Result{
		CheckInputDirectory("Input directory", input),
		CheckOutputDirectory("Output directory", output),
		CheckDistinct("Distinct directories", input, output),
	}
}

// Verify returns nil when every result passed, otherwise an error tagged with
// services.ErrPrecondition describing each failure.
func Verify(results []Result) error {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return services.Wrap(services.ErrPrecondition, "preflight", "", strings.Join(failures, "; "), nil)
}

// CheckInputDirectory verifies that path is an existing, readable directory.
func CheckInputDirectory(name, path string) Result {
	if res, ok := checkDirectory(name, path); !ok {
		return res
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckOutputDirectory verifies that path is an existing, writable, empty
// directory.
func CheckOutputDirectory(name, path string) Result {
	if res, ok := checkDirectory(name, path); !ok {
		return res
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	empty, err := isEmpty(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: list: %v)", path, err)}
	}
	if !empty {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not empty)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (empty, read/write ok)", path)}
}

// CheckDistinct verifies that input and output do not resolve to the same
// directory.
func CheckDistinct(name, input, output string) Result {
	in, errIn := filepath.Abs(input)
	out, errOut := filepath.Abs(output)
	if errIn != nil || errOut != nil {
		return Result{Name: name, Detail: "cannot resolve absolute paths"}
	}
	if evaluated, err := filepath.EvalSymlinks(in); err == nil {
		in = evaluated
	}
	if evaluated, err := filepath.EvalSymlinks(out); err == nil {
		out = evaluated
	}
	if in == out {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: input and output are the same directory)", out)}
	}
	return Result{Name: name, Passed: true, Detail: "ok"}
}

func checkDirectory(name, path string) (Result, bool) {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not set"}, false
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}, false
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}, false
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}, false
	}
	return Result{}, true
}

func isEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
