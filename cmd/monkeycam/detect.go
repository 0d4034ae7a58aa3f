package main

import (
	"fmt"
	"image"

	"github.com/ayusman/monkeycam/internal/app"
	"github.com/ayusman/monkeycam/internal/config"
	"github.com/ayusman/monkeycam/internal/detector"
	"github.com/ayusman/monkeycam/internal/frame"
	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	detectOut      string
	detectDetector string
	detectAsset    string
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Overlay the monkey head on the faces of a still image",
	Long: `Runs a still image through the same NV21 decode, face detection and
overlay steps as the live pipeline and writes the composited result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := detectConfig(cmd.Flags())
		if err != nil {
			return err
		}

		src, err := imaging.Open(args[0], imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		// NV21 chroma is subsampled 2x2; keep the frame even sized.
		b := src.Bounds()
		w, h := b.Dx()&^1, b.Dy()&^1
		if w == 0 || h == 0 {
			return fmt.Errorf("image too small: %dx%d", b.Dx(), b.Dy())
		}
		src = imaging.Crop(src, image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+h))

		decoder, err := app.NewDecoder(cfg.Pipeline.Decoder)
		if err != nil {
			return err
		}
		bmp, err := decoder.Decode(frame.EncodeNV21(src), w, h)
		if err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}

		d, err := app.NewDetector(cfg)
		if err != nil {
			return fmt.Errorf("create detector: %w", err)
		}
		adapter := detector.NewAdapter(d, cfg.Detector.MaxFaces, detector.WithDebug(cfg.Debug))
		defer adapter.Close()
		adapter.Configure(w, h)

		faces, err := adapter.Detect(bmp)
		if err != nil {
			return fmt.Errorf("detect faces: %w", err)
		}

		asset, err := app.LoadAsset(cfg.Display.Asset)
		if err != nil {
			return fmt.Errorf("load asset: %w", err)
		}
		out := imaging.New(w, h, image.Transparent)
		placements := overlay.NewCompositor(asset).Compose(out, bmp, faces)

		for _, p := range placements {
			face, _ := faces.At(p.Index).Get()
			fmt.Printf("face %d: confidence=%.2f eyes=%.1f rect=(%.0f,%.0f,%.0f,%.0f)\n",
				p.Index, face.Confidence, face.EyesDistance,
				p.Rect.Left, p.Rect.Top, p.Rect.Right, p.Rect.Bottom)
		}
		if len(placements) == 0 {
			fmt.Println("no faces found")
		}

		if err := imaging.Save(out, detectOut); err != nil {
			return fmt.Errorf("save image: %w", err)
		}
		fmt.Printf("Wrote %s\n", detectOut)
		return nil
	},
}

// detectConfig loads the config, applies the detect flags and validates
// the result.
func detectConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flags.Changed("detector") {
		cfg.Detector.Kind = detectDetector
	}
	if flags.Changed("asset") {
		cfg.Display.Asset = detectAsset
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	detectCmd.Flags().StringVarP(&detectOut, "out", "o", "monkeycam.jpg", "Output image path")
	detectCmd.Flags().StringVar(&detectDetector, "detector", "pigo", "Face detector: pigo, haar, none")
	detectCmd.Flags().StringVar(&detectAsset, "asset", "", "Overlay image (default: built-in monkey head)")
	rootCmd.AddCommand(detectCmd)
}
