package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parisxmas/crowdtest/internal/prepare"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build products.json for the crowd-testing page",
	Long: `Scans a batch-results folder for 商品<id> sub-directories. Each product
needs 商品.jpg and at least two of 简单版.jpg, 扩展版.jpg, 不垫图版.jpg and
不垫图版模特.jpg. Images are copied under --images-dir (or inlined as data
URLs with --base64) and the catalogue is written to --output.

Example:
  crowdtest prepare --source ./跑批结果 --output ./crowdtest/products.json`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	prepareCmd.Flags().String("source", "", "batch-results folder (required)")
	prepareCmd.Flags().String("output", "products.json", "catalogue file to write")
	prepareCmd.Flags().String("images-dir", "", "where to copy images (default: images next to --output)")
	prepareCmd.Flags().Bool("base64", false, "inline images as data URLs instead of copying")
	_ = prepareCmd.MarkFlagRequired("source")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	var opts prepare.Options
	opts.SourceDir, _ = cmd.Flags().GetString("source")
	opts.OutputFile, _ = cmd.Flags().GetString("output")
	opts.ImagesDir, _ = cmd.Flags().GetString("images-dir")
	opts.Base64, _ = cmd.Flags().GetBool("base64")
	if opts.ImagesDir == "" {
		opts.ImagesDir = filepath.Join(filepath.Dir(opts.OutputFile), "images")
	}

	products, err := prepare.Run(opts, logger.Named("prepare"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %d products written to %s\n", len(products), opts.OutputFile)
	if !opts.Base64 {
		fmt.Fprintf(out, "✓ images in %s\n", opts.ImagesDir)
	}
	fmt.Fprintf(out, "serve the page with: crowdtest serve --static-dir %s\n", filepath.Dir(opts.OutputFile))
	return nil
}
