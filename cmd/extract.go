package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/bid-compare/internal/extract"
	"github.com/sells-group/bid-compare/internal/fetcher"
	"github.com/sells-group/bid-compare/internal/ocr"
	"github.com/sells-group/bid-compare/pkg/anthropic"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract plan prices from bid documents",
	Long:  "Reads every bid document in --data (PDF, XLSX, CSV, text), asks Claude for the priced plans in each, and writes the extracted-bids artifact.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dataDir, _ := cmd.Flags().GetString("data")
		output, _ := cmd.Flags().GetString("output")
		if dataDir == "" {
			dataDir = cfg.Extract.DataDir
		}
		if output == "" {
			output = cfg.Extract.Output
		}

		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		ex := extract.New(
			anthropic.NewClient(cfg.Anthropic.Key),
			extract.NewLoader(ocr.NewExtractor(cfg.OCR)),
			extract.OptionsFromConfig(cfg),
		)

		art, sum, err := ex.ExtractDir(ctx, dataDir, cfg.Extract.Extensions)
		if err != nil {
			return err
		}
		if err := fetcher.WriteArtifact(output, art); err != nil {
			return err
		}

		fmt.Printf("Documents: %d extracted, %d failed\n", sum.Succeeded, len(sum.Failed))
		fmt.Printf("Records: %d\n", sum.Records)
		fmt.Printf("Estimated cost: $%.4f\n", sum.Usage.EstimateCost(cfg.Anthropic.Model))
		failed := make([]string, 0, len(sum.Failed))
		for name := range sum.Failed {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		for _, name := range failed {
			fmt.Fprintf(os.Stderr, "  failed: %s: %s\n", name, sum.Failed[name])
		}
		partial := make([]string, 0, len(sum.Partial))
		for name := range sum.Partial {
			partial = append(partial, name)
		}
		sort.Strings(partial)
		for _, name := range partial {
			fmt.Fprintf(os.Stderr, "  partial: %s: parts %v skipped\n", name, sum.Partial[name])
		}
		fmt.Printf("Wrote %s\n", output)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("data", "", "directory of bid documents (default from config)")
	extractCmd.Flags().String("output", "", "artifact path (default from config)")
	rootCmd.AddCommand(extractCmd)
}
