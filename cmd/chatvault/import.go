package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kshao/chatvault/internal/importer"
	"github.com/kshao/chatvault/internal/models"
	"github.com/kshao/chatvault/internal/sanitize"
	"github.com/kshao/chatvault/internal/validate"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool
	var noFallback bool

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import chat export files into the vault",
		Long: `import detects each file's export format, parses it and stores the
conversations encrypted. Files are processed independently; a corrupt file
is reported and skipped without aborting the rest of the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openVault()
			if err != nil {
				return err
			}
			defer st.Close()

			limits := opts.cfg.Limits
			san := sanitize.New(limits.MaxRenderLength)
			reg := importer.NewRegistry(limits, san, validate.New(limits))
			reg.FallbackEnabled = !noFallback

			batch := importer.NewBatchImporter(reg, st, san, limits.ImportWorkers)
			report, err := batch.ImportFiles(cmd.Context(), args)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full import report as JSON")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "disable confidence-based format fallback")
	return cmd
}

func printReport(cmd *cobra.Command, report *models.ImportReport) {
	out := cmd.OutOrStdout()
	meta := report.Metadata

	fmt.Fprintf(out, "Batch %s\n", report.BatchID)
	fmt.Fprintf(out, "  %d of %d files imported, %d failed\n",
		meta.SuccessfulImports, meta.TotalFilesProcessed, meta.FailedImports)
	fmt.Fprintf(out, "  %s, %s in %s\n",
		pluralize(meta.TotalConversations, "conversation"),
		pluralize(meta.TotalMessages, "message"),
		time.Duration(meta.ProcessingTimeMS)*time.Millisecond)

	if len(meta.DetectedFormats) > 0 {
		formats := make([]string, 0, len(meta.DetectedFormats))
		for f := range meta.DetectedFormats {
			formats = append(formats, f)
		}
		sort.Strings(formats)
		fmt.Fprint(out, "  formats:")
		for _, f := range formats {
			fmt.Fprintf(out, " %s=%d", f, meta.DetectedFormats[f])
		}
		fmt.Fprintln(out)
	}
	if meta.ParserFallbacks > 0 {
		fmt.Fprintf(out, "  %d file(s) resolved via confidence fallback\n", meta.ParserFallbacks)
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
