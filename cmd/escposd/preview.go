package main

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/thereceipt/escpos-driver/internal/layout"
	"github.com/thereceipt/escpos-driver/internal/preview"
)

func newPreviewCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "preview <file-or-url>",
		Short: "Render a receipt (.json) or markup document to PNG without a printer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0])
			if err != nil {
				return err
			}

			opts := preview.Options{Columns: appCfg.LineWidth, Dots: appCfg.PrinterDots}
			var img image.Image
			if in.receipt != nil {
				ops := layout.Render(*in.receipt, layout.Options{Width: appCfg.LineWidth})
				img, err = preview.Render(append(ops, layout.CutOp{}), opts)
			} else {
				img, err = preview.RenderDocument(in.document, opts)
			}
			if err != nil {
				return err
			}

			if err := imaging.Save(img, output); err != nil {
				return fmt.Errorf("failed to save preview: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", output, img.Bounds().Dx(), img.Bounds().Dy())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "receipt.png", "PNG file to write")
	return cmd
}
