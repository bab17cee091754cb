package main

import (
	"context"

	"github.com/spf13/cobra"
)

var favCmd = &cobra.Command{
	Use:   "fav",
	Short: "Manage favorites",
}

var favToggleCmd = &cobra.Command{
	Use:   "toggle <table> <position>",
	Short: "Mark or unmark a record as favorite",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		pos, err := parsePositionArg(args[1])
		if err != nil {
			return outputError("fav toggle", err)
		}
		app, err := openApp()
		if err != nil {
			return outputError("fav toggle", err)
		}
		defer app.Close()

		res, err := app.ToggleFavorite(context.Background(), table, pos)
		if err != nil {
			return outputError("fav toggle", err)
		}
		return outputResult(CLIResult{
			Command: "fav toggle",
			Results: CLIToggle{Table: table, Position: pos, Result: res.String()},
		})
	},
}

var favListCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "List favorite records in position order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		app, err := openApp()
		if err != nil {
			return outputError("fav list", err)
		}
		defer app.Close()

		favs, err := app.Favorites(context.Background(), table)
		if err != nil {
			return outputError("fav list", err)
		}
		recs := toCLIRecords(table, favs)
		yes := true
		for i := range recs {
			recs[i].Favorite = &yes
		}
		count := len(recs)
		return outputResult(CLIResult{Command: "fav list", Results: recs, TotalCount: &count})
	},
}

func init() {
	favCmd.AddCommand(favToggleCmd)
	favCmd.AddCommand(favListCmd)
}
