package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"geocluster/internal/naming"
	"geocluster/internal/pipeline"
	"geocluster/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderPreflight(w io.Writer, results []preflight.Result, colorize bool) {
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(w, line)
	}
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		fmt.Fprintln(w, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
}

// renderSummary prints the folder table followed by ingest, relocation and
// failure details for a finished run.
func renderSummary(w io.Writer, res *pipeline.Result, colorize bool) {
	title := "Organized"
	if res.Report.DryRun {
		title = "Plan (dry run)"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(w, line)
	}

	if len(res.Report.Folders) == 0 {
		fmt.Fprintln(w, "No photos to organize")
	} else {
		rows := make([][]string, 0, len(res.Report.Folders))
		for _, folder := range res.Report.Folders {
			rows = append(rows, []string{
				folder.Name,
				strconv.Itoa(folder.Items),
				strconv.Itoa(folder.Copied),
				humanize.Bytes(uint64(folder.Bytes)),
			})
		}
		footer := []string{
			fmt.Sprintf("%s folders", humanize.Comma(int64(len(res.Report.Folders)))),
			strconv.Itoa(res.Set.ItemCount()),
			strconv.Itoa(res.Report.Files()),
			humanize.Bytes(uint64(res.Report.Bytes())),
		}
		copied := "Copied"
		if res.Report.DryRun {
			copied = "Planned"
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Folder", "Photos", copied, "Size"},
			rows,
			footer,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
		))
	}

	stats := res.Ingest
	fmt.Fprintln(w, renderStatusLine("Scanned", statusInfo,
		fmt.Sprintf("%s candidates, %s located, %s timestamped",
			humanize.Comma(int64(stats.Candidates)),
			humanize.Comma(int64(stats.Located)),
			humanize.Comma(int64(stats.Timed))), colorize))
	if skipped := stats.NoMetadata + stats.Unreadable; skipped > 0 {
		fmt.Fprintln(w, renderStatusLine("Skipped", statusWarn,
			fmt.Sprintf("%d without EXIF, %d unreadable", stats.NoMetadata, stats.Unreadable), colorize))
	}
	if res.ClustersBeforeMerge != len(res.Set.Clusters) {
		fmt.Fprintln(w, renderStatusLine("Merged", statusInfo,
			fmt.Sprintf("%d clusters into %d", res.ClustersBeforeMerge, len(res.Set.Clusters)), colorize))
	}
	if len(res.Relocations) > 0 {
		fmt.Fprintln(w, renderStatusLine("Relocated", statusInfo,
			fmt.Sprintf("%d photos by capture time", len(res.Relocations)), colorize))
	}
	if n := res.Set.Unclassified.Len(); n > 0 {
		fmt.Fprintln(w, renderStatusLine("Unclassified", statusWarn,
			fmt.Sprintf("%d photos in %s", n, naming.Unclassified), colorize))
	}
	for _, failure := range res.Report.Failures {
		fmt.Fprintln(w, renderStatusLine("Failed", statusError,
			fmt.Sprintf("%s: %v", failure.Source, failure.Err), colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Elapsed", statusInfo,
		fmt.Sprintf("%s (run %s)", res.Elapsed.Round(time.Millisecond), res.RunID), colorize))
}

func formatMeters(m float64) string {
	if m >= 1000 {
		return strconv.FormatFloat(m/1000, 'f', -1, 64) + " km"
	}
	return strconv.FormatFloat(m, 'f', -1, 64) + " m"
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
