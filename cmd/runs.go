package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bid-compare/internal/model"
	"github.com/sells-group/bid-compare/internal/report"
	"github.com/sells-group/bid-compare/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved comparison runs",
	Long:  "Commands for listing, viewing, and deleting comparison runs saved with compare --save.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List comparison runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		vendor, _ := cmd.Flags().GetString("vendor")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{Vendor: vendor, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON || run.Analysis == nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
		return report.Render(os.Stdout, run.Analysis)
	},
}

// -- runs delete --

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteRun(ctx, args[0]); err != nil {
			return eris.Wrap(err, "runs delete")
		}
		fmt.Printf("Deleted run %s\n", args[0])
		return nil
	},
}

// formatRunsList writes a table of runs to out.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tINPUT\tVENDORS\tWINNER\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t-------\t------\t-------")

	for _, r := range runs {
		input := r.Input
		if len(input) > 30 {
			input = "..." + input[len(input)-27:]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			truncateID(r.ID),
			input,
			len(r.Vendors),
			winnerLabel(r),
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func winnerLabel(r model.Run) string {
	switch {
	case len(r.Winners) == 0:
		return "-"
	case r.Tie:
		return "tie: " + strings.Join(r.Winners, ", ")
	default:
		return r.Winners[0]
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsListCmd.Flags().String("vendor", "", "only runs that include this vendor")
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")
	runsShowCmd.Flags().Bool("json", false, "print the stored run as JSON")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}
