package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ayusman/monkeycam/internal/app"
	"github.com/ayusman/monkeycam/internal/capture"
	"github.com/spf13/cobra"
)

var (
	sizesWidth  int
	sizesHeight int
)

var sizesCmd = &cobra.Command{
	Use:   "sizes",
	Short: "List capture sizes and the one chosen for a display",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("width") {
			sizesWidth = cfg.Display.Width
		}
		if !cmd.Flags().Changed("height") {
			sizesHeight = cfg.Display.Height
		}

		sizes := app.NewSource(cfg).SupportedSizes()
		chosen, err := capture.SelectPreviewSize(sizes, sizesWidth, sizesHeight)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SIZE\tRATIO\tSELECTED")
		for _, s := range sizes {
			mark := ""
			if s == chosen {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%.3f\t%s\n", s, s.Ratio(), mark)
		}
		return w.Flush()
	},
}

func init() {
	sizesCmd.Flags().IntVar(&sizesWidth, "width", 0, "Display width (default: from config)")
	sizesCmd.Flags().IntVar(&sizesHeight, "height", 0, "Display height (default: from config)")
	rootCmd.AddCommand(sizesCmd)
}
