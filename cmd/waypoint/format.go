package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jward/waypoint/internal/nav"
)

// formatRecordsText formats CLIRecord results as aligned columns.
func formatRecordsText(w io.Writer, recs []CLIRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POSITION\tNAME\tTEL\tADDRESS\tFAVORITE")
	for _, r := range recs {
		fav := ""
		if r.Favorite != nil && *r.Favorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Position, r.Name, r.Tel, r.Address, fav)
	}
	tw.Flush()
}

// formatTranscriptText prints one line per step.
func formatTranscriptText(w io.Writer, tr *nav.Transcript) {
	fmt.Fprintf(w, "Session %s (%s)\n", tr.Scenario, tr.Table)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tACTION\tSCREEN\tRESULT")
	for _, s := range tr.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Step, s.Action, s.Screen, stepSummary(s))
	}
	tw.Flush()
	if len(tr.History) > 0 {
		parts := make([]string, len(tr.History))
		for i, s := range tr.History {
			parts[i] = s.String()
		}
		fmt.Fprintf(w, "\nHistory: %s\n", strings.Join(parts, " > "))
	}
}

func stepSummary(s nav.StepResult) string {
	switch {
	case s.Error != "":
		return "error: " + s.Error
	case s.Toggle != "":
		return s.Toggle
	case s.View == nil:
		return ""
	case s.View.Status == nav.StatusRecord:
		return fmt.Sprintf("record %d %s", s.View.Record.Position, s.View.Record.Name)
	case s.View.Status == nav.StatusList:
		return fmt.Sprintf("%d records", len(s.View.Records))
	default:
		return string(s.View.Status)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIRecord:
		formatRecordsText(w, v)
	case CLIRecord:
		formatRecordsText(w, []CLIRecord{v})
	case CLIToggle:
		fmt.Fprintf(w, "%s %d: %s\n", v.Table, v.Position, v.Result)
	case CLILink:
		fmt.Fprintln(w, v.Link)
	case CLICount:
		fmt.Fprintf(w, "%d\n", v.Count)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case *nav.Transcript:
		formatTranscriptText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIRecord:
		return len(r)
	case []string:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
