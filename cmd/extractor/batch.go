package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Extract every PDF in a directory",
	Long: `Batch runs the extraction pipeline over every .pdf file in a directory,
continuing past individual failures. Duplicate rejections are reported but
do not count as failures: re-running a batch over a partially ingested
directory only processes the new books.

Examples:
  extractor batch ./library
  extractor batch ./novels --kind novel`,
	Args:         usageArgs(cobra.ExactArgs(1)),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(args[0])
		if err != nil {
			return fmt.Errorf("failed to read directory: %w", err)
		}
		var pdfs []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
				pdfs = append(pdfs, filepath.Join(args[0], e.Name()))
			}
		}
		sort.Strings(pdfs)
		if len(pdfs) == 0 {
			return fmt.Errorf("no PDF files in %s", args[0])
		}

		override := types.Override{
			Game:    extractGame,
			Edition: extractEdition,
			Book:    extractBook,
			Kind:    types.ContentKind(extractKind),
		}
		if override.Kind != "" && !override.Kind.Valid() {
			return usageError{fmt.Errorf("unknown kind %q, expected source_material or novel", extractKind)}
		}

		var completed, duplicates, failed int
		for _, path := range pdfs {
			if cmd.Context().Err() != nil {
				return types.NewError(types.KindCancelled, "batch", cmd.Context().Err())
			}
			fmt.Fprintf(os.Stderr, "== %s\n", filepath.Base(path))
			artifact, err := runLocal(cmd.Context(), path, override)
			switch {
			case err == nil:
				completed++
				fmt.Fprintf(os.Stderr, "   completed: %s/%s/%s grade %s\n",
					artifact.Verdict.Game, artifact.Verdict.Edition, artifact.Verdict.Book,
					artifact.Confidence.Grade)
				if extractOut != "" {
					if _, err := writeArtifact(artifact, extractOut); err != nil {
						fmt.Fprintf(os.Stderr, "   failed to write artifact: %v\n", err)
					}
				}
			case types.IsKind(err, types.KindRejectedDuplicate):
				duplicates++
				fmt.Fprintf(os.Stderr, "   skipped: already extracted\n")
			case types.IsKind(err, types.KindCancelled):
				return err
			default:
				failed++
				fmt.Fprintf(os.Stderr, "   failed: %v\n", err)
			}
		}

		fmt.Fprintf(os.Stderr, "\n%d completed, %d duplicates, %d failed of %d\n",
			completed, duplicates, failed, len(pdfs))
		if failed > 0 {
			return fmt.Errorf("%d of %d extractions failed", failed, len(pdfs))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&extractGame, "game", "", "Override the detected game system")
	batchCmd.Flags().StringVar(&extractEdition, "edition", "", "Override the detected edition")
	batchCmd.Flags().StringVar(&extractBook, "book", "", "Override the detected book")
	batchCmd.Flags().StringVar(&extractKind, "kind", "", "Override the content kind")
	batchCmd.Flags().StringVar(&extractProvider, "provider", "", "Provider for this run (mock, cloud-a, cloud-b, local)")
	batchCmd.Flags().StringVar(&extractLayout, "layout", "", "Collection layout (separate, single_with_folder)")
	batchCmd.Flags().StringVar(&extractEnhance, "enhance", "", "Text enhancement mode (off, normal, aggressive)")
	batchCmd.Flags().StringVar(&extractOut, "out", "", "Directory to write artifact JSON files into")
	batchCmd.Flags().BoolVar(&extractQuiet, "quiet", true, "Suppress per-page progress output")
	rootCmd.AddCommand(batchCmd)
}
