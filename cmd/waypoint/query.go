package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/waypoint"
	"github.com/jward/waypoint/internal/errs"
	"github.com/jward/waypoint/internal/fixture"
)

var (
	flagLimit  int
	flagOffset int
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the record tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return outputError("tables", err)
		}
		defer app.Close()
		names := app.Tables()
		count := len(names)
		return outputResult(CLIResult{Command: "tables", Results: names, TotalCount: &count})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Import records from a YAML fixture in one transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fx, err := fixture.LoadFile(args[0])
		if err != nil {
			return outputError("seed", err)
		}
		app, err := openApp()
		if err != nil {
			return outputError("seed", err)
		}
		defer app.Close()
		n, err := app.Seed(context.Background(), fx)
		if err != nil {
			return outputError("seed", err)
		}
		return outputResult(CLIResult{Command: "seed", Results: CLICount{Count: n}})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <table> <position>",
	Short: "Show the record at a position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		pos, err := parsePositionArg(args[1])
		if err != nil {
			return outputError("get", err)
		}
		app, err := openApp()
		if err != nil {
			return outputError("get", err)
		}
		defer app.Close()

		ctx := context.Background()
		rec, err := app.GetRecord(ctx, table, pos)
		if err != nil {
			return outputError("get", err)
		}
		fav, err := app.IsFavorite(ctx, table, pos)
		if err != nil {
			return outputError("get", err)
		}
		out := toCLIRecord(table, rec)
		out.Favorite = &fav
		return outputResult(CLIResult{Command: "get", Results: out})
	},
}

var listCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "List records in position order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		app, err := openApp()
		if err != nil {
			return outputError("list", err)
		}
		defer app.Close()

		page, err := app.ListRecords(context.Background(), table, buildPagination())
		if err != nil {
			return outputError("list", err)
		}
		return outputResult(CLIResult{
			Command:    "list",
			Results:    toCLIRecords(table, page.Items),
			TotalCount: &page.TotalCount,
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <table> <position>...",
	Short: "Delete records and their favorite marks",
	Long: `Deletes the records at the given positions. With one position a missing
record is an error; with several, missing positions are skipped and the
count of removed records is reported.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		positions := make([]int64, 0, len(args)-1)
		for _, arg := range args[1:] {
			pos, err := parsePositionArg(arg)
			if err != nil {
				return outputError("delete", err)
			}
			positions = append(positions, pos)
		}
		app, err := openApp()
		if err != nil {
			return outputError("delete", err)
		}
		defer app.Close()

		ctx := context.Background()
		if len(positions) == 1 {
			if err := app.DeleteRecord(ctx, args[0], positions[0]); err != nil {
				return outputError("delete", err)
			}
			return outputResult(CLIResult{Command: "delete", Results: CLICount{Count: 1}})
		}
		n, err := app.DeleteRecords(ctx, args[0], positions)
		if err != nil {
			return outputError("delete", err)
		}
		return outputResult(CLIResult{Command: "delete", Results: CLICount{Count: n}})
	},
}

var mapCmd = &cobra.Command{
	Use:   "map <table> <position>",
	Short: "Print the map provider link for a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePositionArg(args[1])
		if err != nil {
			return outputError("map", err)
		}
		app, err := openApp()
		if err != nil {
			return outputError("map", err)
		}
		defer app.Close()
		link, err := app.MapLink(context.Background(), args[0], pos)
		if err != nil {
			return outputError("map", err)
		}
		return outputResult(CLIResult{Command: "map", Results: CLILink{Table: args[0], Position: pos, Link: link}})
	},
}

func init() {
	listCmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	listCmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
}

// --- Helpers ---

// parsePositionArg parses a record position argument.
func parsePositionArg(value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: must be a non-negative integer", value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid position %q: must be non-negative", value)
	}
	return n, nil
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() waypoint.Pagination {
	return waypoint.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

// outputResult writes a CLIResult in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
		Code:    string(errs.CodeOf(err)),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}
