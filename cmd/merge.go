package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rarepdftool/pdftools/internal/assemble"
	"github.com/rarepdftool/pdftools/internal/idgen"
	"github.com/rarepdftool/pdftools/internal/merge"
	"github.com/rarepdftool/pdftools/internal/models"
)

func newMergeCmd(root *rootOptions) *cobra.Command {
	var (
		output    string
		margin    float64
		noNumbers bool
	)

	cmd := &cobra.Command{
		Use:   "merge <file>...",
		Short: "Merge PDFs and images into one PDF",
		Long: `Merges the given files, in order, into a single PDF.

PDF files contribute all of their pages. Each image becomes one page no
wider than merge.max_page_width plus the margin on every side. Pages are
numbered in the bottom-right corner unless --no-numbers is set.`,
		Example: `  # Merge two PDFs and a photo
  pdftools merge report.pdf appendix.pdf photo.jpg -o bundle.pdf

  # Wider margins, no page numbers
  pdftools merge scans/*.png --margin 32 --no-numbers`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if !cmd.Flags().Changed("margin") {
				margin = cfg.Merge.DefaultMargin
			}
			if output == "" {
				output = fmt.Sprintf("merged_%d.pdf", time.Now().UnixMilli())
			}

			files, err := readInputs(args)
			if err != nil {
				return err
			}

			session := merge.NewSession("cli", merge.Config{
				MaxTotalBytes: int64(cfg.Merge.MaxTotalBytes),
				NewID:         idgen.Sequence("item-"),
				Logger:        root.logger,
			})
			defer session.Close()
			if _, err := session.Add(files); err != nil {
				return err
			}

			opts := assemble.DefaultOptions()
			opts.Margin = margin
			opts.MaxPageWidth = cfg.Merge.MaxPageWidth
			opts.PageNumbers = !noNumbers

			res, err := assemble.New(assemble.Config{Logger: root.logger}).Run(cmd.Context(), session.Items(), opts)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, res.PDF, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			cmd.Printf("Wrote %s (%d pages, %s)\n", output, res.PageCount, humanize.IBytes(uint64(len(res.PDF))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default merged_<timestamp>.pdf)")
	cmd.Flags().Float64VarP(&margin, "margin", "m", assemble.DefaultMargin, "Margin around image pages, in points (0-64)")
	cmd.Flags().BoolVar(&noNumbers, "no-numbers", false, "Do not stamp page numbers")

	return cmd
}

// readInputs loads files from disk in argument order.
func readInputs(paths []string) ([]models.FileInput, error) {
	files := make([]models.FileInput, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, models.FileInput{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}
