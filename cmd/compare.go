package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bid-compare/internal/compare"
	"github.com/sells-group/bid-compare/internal/fetcher"
	"github.com/sells-group/bid-compare/internal/model"
	"github.com/sells-group/bid-compare/internal/normalize"
	"github.com/sells-group/bid-compare/internal/report"
	"github.com/sells-group/bid-compare/internal/store"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare extracted bids and write the reports",
	Long:  "Normalizes the extracted-bids artifact, compares vendors plan by plan, and writes bid_comparison.csv, bid_report.md and bid_result.json.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		outDir, _ := cmd.Flags().GetString("out-dir")
		withXLSX, _ := cmd.Flags().GetBool("xlsx")
		save, _ := cmd.Flags().GetBool("save")
		aliasPath, _ := cmd.Flags().GetString("aliases")

		if outDir == "" {
			outDir = cfg.Compare.OutDir
		}
		if !cmd.Flags().Changed("xlsx") {
			withXLSX = cfg.Compare.XLSX
		}
		if cmd.Flags().Changed("tolerance") {
			cfg.Compare.PriceTolerance, _ = cmd.Flags().GetFloat64("tolerance")
		}
		if err := cfg.Validate("compare"); err != nil {
			return err
		}

		opts, err := compareOptions(aliasPath)
		if err != nil {
			return err
		}

		a, files, err := runCompare(input, outDir, withXLSX, opts)
		if err != nil {
			return err
		}

		if save {
			if err := saveRun(ctx, input, a); err != nil {
				return err
			}
		}

		printSummary(os.Stdout, a, files)
		return nil
	},
}

// compareOptions builds normalizer options from config and an optional
// alias file. Entries in the file take precedence over config.
func compareOptions(aliasPath string) (normalize.Options, error) {
	opts := normalize.DefaultOptions()
	opts.PriceTolerance = cfg.Compare.PriceTolerance

	aliases, err := normalize.AliasTable(cfg.Compare.AliasGroups())
	if err != nil {
		return opts, eris.Wrap(err, "compare: config aliases")
	}
	if aliasPath != "" {
		fromFile, err := normalize.LoadAliases(aliasPath)
		if err != nil {
			return opts, err
		}
		for k, v := range fromFile {
			aliases[k] = v
		}
	}
	opts.Aliases = aliases
	return opts, nil
}

// runCompare reads the artifact at input, analyzes it and writes the reports
// into outDir.
func runCompare(input, outDir string, withXLSX bool, opts normalize.Options) (*model.Analysis, *report.Files, error) {
	art, err := fetcher.ReadArtifact(input)
	if err != nil {
		return nil, nil, err
	}

	a, err := compare.Analyze(art.Records(), opts)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "compare: analyze %s", input)
	}

	files, err := report.WriteAll(outDir, a, withXLSX)
	if err != nil {
		return nil, nil, err
	}
	return a, files, nil
}

func saveRun(ctx context.Context, input string, a *model.Analysis) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	run := store.NewRun(input, a)
	if err := st.SaveRun(ctx, run); err != nil {
		return eris.Wrap(err, "compare: save run")
	}
	zap.L().Info("saved comparison run", zap.String("run_id", run.ID))
	return nil
}

func printSummary(out io.Writer, a *model.Analysis, files *report.Files) {
	n := a.Normalize
	_, _ = fmt.Fprintf(out, "Records: %d received, %d accepted, %d merged, %d rejected\n",
		n.Received, n.Accepted, n.Merged, n.Rejected)
	_, _ = fmt.Fprintf(out, "Plans: %d compared, %d excluded\n", len(a.Plans), len(a.Excluded))

	o := a.Overall
	switch {
	case len(o.Winners) == 0:
		_, _ = fmt.Fprintln(out, "Overall winner: none (no eligible plans)")
	case o.Tie:
		_, _ = fmt.Fprintf(out, "Overall winner: tie between %v\n", o.Winners)
	default:
		_, _ = fmt.Fprintf(out, "Overall winner: %s\n", o.Winner())
	}
	_, _ = fmt.Fprintf(out, "Total savings: %.2f\n", o.TotalSavings)

	for _, p := range []string{files.CSV, files.Report, files.JSON, files.XLSX} {
		if p != "" {
			_, _ = fmt.Fprintf(out, "Wrote %s\n", p)
		}
	}
}

func init() {
	compareCmd.Flags().String("input", "extracted_bids.json", "extracted-bids artifact")
	compareCmd.Flags().String("out-dir", "", "output directory (default from config)")
	compareCmd.Flags().Bool("xlsx", false, "also write bid_comparison.xlsx")
	compareCmd.Flags().Bool("save", false, "persist the run to the configured store")
	compareCmd.Flags().Float64("tolerance", 0.01, "absolute price agreement window for merging")
	compareCmd.Flags().String("aliases", "", "YAML vendor alias file")
	rootCmd.AddCommand(compareCmd)
}
