package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/waypoint/internal/nav"
)

var flagTable string

var navCmd = &cobra.Command{
	Use:   "nav <step>...",
	Short: "Walk the screens from main",
	Long: `Starts on the main screen and applies each step in order. Steps:

  <screen>[:<position>]   go forward, e.g. second:0 or bookmark
  back                    return to the previous screen
  fav:<position>          toggle a favorite

The table defaults to nav.table from the configuration.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := parseNavSteps(args)
		if err != nil {
			return outputError("nav", err)
		}
		table := flagTable
		if table == "" {
			table = cfg.Nav.Table
		}
		sc := &nav.Scenario{Name: "nav", Table: table, Steps: steps}
		if err := sc.Validate(); err != nil {
			return outputError("nav", err)
		}
		return runSession("nav", sc)
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session <scenario.yaml>",
	Short: "Replay a navigation scenario file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := nav.LoadScenario(args[0])
		if err != nil {
			return outputError("session", err)
		}
		return runSession("session", sc)
	},
}

func init() {
	navCmd.Flags().StringVar(&flagTable, "table", "", "record table to browse (default: nav.table)")
}

func runSession(command string, sc *nav.Scenario) error {
	app, err := openApp()
	if err != nil {
		return outputError(command, err)
	}
	defer app.Close()

	tr, err := app.RunScenario(context.Background(), sc)
	if err != nil {
		return outputError(command, err)
	}
	return outputResult(CLIResult{Command: command, Results: tr})
}

// parseNavSteps turns nav arguments into scenario steps.
func parseNavSteps(args []string) ([]nav.Step, error) {
	steps := make([]nav.Step, 0, len(args))
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, ":")
		switch {
		case name == "back":
			if hasValue {
				return nil, fmt.Errorf("step %q: back takes no position", arg)
			}
			steps = append(steps, nav.Step{Back: true})
		case name == "fav":
			if !hasValue {
				return nil, fmt.Errorf("step %q: fav needs a position", arg)
			}
			p, err := parsePositionArg(value)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", arg, err)
			}
			steps = append(steps, nav.Step{Favorite: &p})
		default:
			if _, err := nav.ParseScreen(name); err != nil {
				return nil, fmt.Errorf("step %q: %w", arg, err)
			}
			st := nav.Step{Go: name}
			if hasValue {
				p, err := parsePositionArg(value)
				if err != nil {
					return nil, fmt.Errorf("step %q: %w", arg, err)
				}
				st.Position = &p
			}
			steps = append(steps, st)
		}
	}
	return steps, nil
}
