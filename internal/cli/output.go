// Package cli renders command results for the docsync CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hyperjump/docsync/internal/importer"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/searchindex"
	"github.com/hyperjump/docsync/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates s. An empty string means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("154"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const maxErrorWidth = 160

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReport writes a reindex report.
func WriteReport(w io.Writer, r *indexer.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Reindexed %s", r.Index)))
	fmt.Fprintf(w, "  types:      %s\n", strings.Join(r.Types, ", "))
	if r.Cleared {
		fmt.Fprintln(w, "  cleared:    yes")
	}
	fmt.Fprintf(w, "  documents:  %s processed of %s (%s indexed, %s skipped)\n",
		humanize.Comma(int64(r.Processed)), humanize.Comma(int64(r.Total)),
		humanize.Comma(int64(r.Indexed)), humanize.Comma(int64(r.Skipped)))
	fmt.Fprintf(w, "  records:    %s in %d pages\n", humanize.Comma(int64(r.Records)), r.Pages)
	fmt.Fprintf(w, "  duration:   %s\n", r.Duration.Round(time.Millisecond))
	if r.Failed == 0 && r.FailedBatches == 0 {
		fmt.Fprintln(w, okStyle.Render("  no failures"))
		return nil
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  failed:     %d documents, %d pages", r.Failed, r.FailedBatches)))
	for _, e := range r.Errors {
		fmt.Fprintln(w, errorStyle.Render("    "+utils.Truncate(e, maxErrorWidth)))
	}
	return nil
}

// WriteOutcome writes the result of a single-document sync.
func WriteOutcome(w io.Writer, o indexer.Outcome, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, o)
	}
	line := fmt.Sprintf("%s %s", o.DocumentID, o.State)
	if o.DistinctKey != "" {
		line = fmt.Sprintf("%s (%s) %s", o.DocumentID, o.DistinctKey, o.State)
	}
	switch o.State {
	case indexer.StateReplaced:
		line += fmt.Sprintf(": %d records in %s", o.Records, o.Index)
	case indexer.StateDeleted:
		line += fmt.Sprintf(": removed from %s", o.Index)
	case indexer.StateSkipped:
		line += ": " + o.Reason
		fmt.Fprintln(w, warnStyle.Render(line))
		return nil
	}
	fmt.Fprintln(w, okStyle.Render(line))
	return nil
}

// WriteImportSummary writes the result of a directory import.
func WriteImportSummary(w io.Writer, s *importer.Summary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintln(w, headerStyle.Render("Import finished"))
	fmt.Fprintf(w, "  files:      %s (%s imported, %s unchanged, %s failed)\n",
		humanize.Comma(int64(s.Files)), humanize.Comma(int64(s.Imported)),
		humanize.Comma(int64(s.Unchanged)), humanize.Comma(int64(s.Failed)))
	for _, e := range s.Errors {
		fmt.Fprintln(w, errorStyle.Render("    "+utils.Truncate(e, maxErrorWidth)))
	}
	return nil
}

// Status summarizes the store and index for the status command.
type Status struct {
	Index           string             `json:"index"`
	IndexableTypes  []string           `json:"indexable_types"`
	Documents       int64              `json:"documents"`
	PublishedByType map[string]int64   `json:"published_by_type"`
	DiskUsageBytes  int64              `json:"disk_usage_bytes"`
	Connection      searchindex.Status `json:"connection"`
}

// WriteStatus writes a status summary.
func WriteStatus(w io.Writer, s Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintln(w, headerStyle.Render("docsync status"))
	fmt.Fprintf(w, "  index:      %s\n", s.Index)
	fmt.Fprintf(w, "  types:      %s\n", strings.Join(s.IndexableTypes, ", "))
	fmt.Fprintf(w, "  documents:  %s\n", humanize.Comma(s.Documents))
	types := make([]string, 0, len(s.PublishedByType))
	for t := range s.PublishedByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "    %-10s %s published\n", t, humanize.Comma(s.PublishedByType[t]))
	}
	fmt.Fprintf(w, "  disk usage: %s\n", humanize.Bytes(uint64(s.DiskUsageBytes)))
	return WriteConnection(w, s.Connection, OutputText)
}

// WriteConnection writes the result of a connection check.
func WriteConnection(w io.Writer, s searchindex.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	provider := s.Provider
	if provider == "" {
		provider = "none"
	}
	if s.Connected {
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("  connection: %s reachable", provider)))
		return nil
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  connection: %s not connected: %s", provider, s.Error)))
	return nil
}
