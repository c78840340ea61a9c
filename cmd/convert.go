package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rarepdftool/pdftools/internal/convert"
)

func newCompressCmd(root *rootOptions) *cobra.Command {
	var (
		output  string
		quality string
	)

	cmd := &cobra.Command{
		Use:   "compress <file.pdf>",
		Short: "Reduce the size of a PDF",
		Long: `Rewrites a PDF with Ghostscript using one of its quality presets.
Without Ghostscript on PATH, pdfcpu's optimizer is used instead.`,
		Example: `  pdftools compress big.pdf -o small.pdf --quality screen`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := convert.ParseQuality(quality)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			c := convert.NewCompressor(convert.CompressorConfig{
				Ghostscript: root.cfg.Convert.Ghostscript,
				TempDir:     root.cfg.Server.UploadDir,
				Logger:      root.logger,
			})
			res, err := c.Compress(cmd.Context(), data, q)
			if err != nil {
				return err
			}
			if output == "" {
				output = withSuffix(args[0], "_compressed", ".pdf")
			}
			if err := os.WriteFile(output, res.PDF, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			cmd.Printf("Wrote %s (%s -> %s, %s)\n", output,
				humanize.IBytes(uint64(res.OriginalSize)),
				humanize.IBytes(uint64(res.CompressedSize)),
				res.Method)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <name>_compressed.pdf)")
	cmd.Flags().StringVarP(&quality, "quality", "q", string(convert.QualityEbook), "Quality preset: screen, ebook, printer, prepress or default")

	return cmd
}

func newRasterizeCmd(root *rootOptions) *cobra.Command {
	var (
		output string
		format string
		dpi    float64
	)

	cmd := &cobra.Command{
		Use:   "rasterize <file.pdf>",
		Short: "Render every page of a PDF to PNG or JPEG, zipped",
		Long: `Renders each page to an image named page_<n>.<ext> and writes them
into a zip archive. Requires a build with the mupdf tag.`,
		Example: `  pdftools rasterize slides.pdf --format jpg -o slides.zip`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := convert.ParseFormat(format)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dpi") {
				dpi = root.cfg.Convert.DPI
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			r := convert.NewRasterizer(convert.RasterizerConfig{DPI: dpi, Logger: root.logger})
			pages, err := r.Rasterize(cmd.Context(), data, f)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := convert.ZipPages(&buf, pages); err != nil {
				return err
			}
			if output == "" {
				output = withSuffix(args[0], "_"+f.Ext(), ".zip")
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			cmd.Printf("Wrote %s (%d pages)\n", output, len(pages))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output zip (default <name>_<format>.zip)")
	cmd.Flags().StringVarP(&format, "format", "f", "png", "Image format: png or jpg")
	cmd.Flags().Float64Var(&dpi, "dpi", 200, "Render resolution")

	return cmd
}

func newConvertImageCmd(root *rootOptions) *cobra.Command {
	var (
		output   string
		format   string
		maxWidth int
	)

	cmd := &cobra.Command{
		Use:   "convert-image <file>",
		Short: "Convert an image to jpg, png, gif, bmp or tiff",
		Example: `  pdftools convert-image photo.webp --format jpg
  pdftools convert-image scan.tiff --format png --max-width 1200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := convert.ParseFormat(format)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			out, err := convert.ImageConverter{MaxWidth: maxWidth}.Convert(data, f)
			if err != nil {
				return err
			}
			if output == "" {
				output = withSuffix(args[0], "", "."+f.Ext())
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			root.logger.Debug("Converted image", "input", args[0], "output", output, "format", f)
			cmd.Printf("Wrote %s (%s)\n", output, humanize.IBytes(uint64(len(out))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default input name with the new extension)")
	cmd.Flags().StringVarP(&format, "format", "f", "jpg", "Target format: jpg, png, gif, bmp or tiff")
	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "Scale down images wider than this many pixels")

	return cmd
}

// withSuffix derives an output path from input: dir/name<suffix><ext>.
func withSuffix(input, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+suffix+ext)
}
