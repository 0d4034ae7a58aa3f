package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/ayusman/monkeycam/internal/app"
	"github.com/ayusman/monkeycam/internal/config"
	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/ayusman/monkeycam/internal/tray"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// serveFlags holds the command line overrides of the config file.
type serveFlags struct {
	Addr     string
	Source   string
	Device   int
	Decoder  string
	Detector string
	Asset    string
	Width    int
	Height   int
	MaxFaces int
	Debug    bool
	Tray     bool
}

var serveOpts serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live pipeline and the preview server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyServeFlags(cmd.Flags(), cfg)

		if cfg.Server.StaticDir == "" {
			cfg.Server.StaticDir = findWebDir()
		}

		return runServe(cmd, cfg)
	},
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().StringVar(&serveOpts.Addr, "addr", d.Server.Addr, "HTTP listen address")
	cmd.Flags().StringVar(&serveOpts.Source, "source", d.Capture.Source, "Frame source: camera, synthetic")
	cmd.Flags().IntVar(&serveOpts.Device, "device", d.Capture.Device, "Camera device id")
	cmd.Flags().StringVar(&serveOpts.Decoder, "decoder", d.Pipeline.Decoder, "Frame decoder: jpeg, gocv")
	cmd.Flags().StringVar(&serveOpts.Detector, "detector", d.Detector.Kind, "Face detector: pigo, haar, none")
	cmd.Flags().StringVar(&serveOpts.Asset, "asset", d.Display.Asset, "Overlay image (default: built-in monkey head)")
	cmd.Flags().IntVar(&serveOpts.Width, "width", d.Display.Width, "Display width")
	cmd.Flags().IntVar(&serveOpts.Height, "height", d.Display.Height, "Display height")
	cmd.Flags().IntVar(&serveOpts.MaxFaces, "max-faces", d.Detector.MaxFaces, "Maximum faces per frame")
	cmd.Flags().BoolVar(&serveOpts.Debug, "debug", d.Debug, "Log every detected face")
	cmd.Flags().BoolVar(&serveOpts.Tray, "tray", false, "Show a system tray menu")
}

// applyServeFlags copies the flags set on the command line into cfg.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("addr") {
		cfg.Server.Addr = serveOpts.Addr
	}
	if flags.Changed("source") {
		cfg.Capture.Source = serveOpts.Source
	}
	if flags.Changed("device") {
		cfg.Capture.Device = serveOpts.Device
	}
	if flags.Changed("decoder") {
		cfg.Pipeline.Decoder = serveOpts.Decoder
	}
	if flags.Changed("detector") {
		cfg.Detector.Kind = serveOpts.Detector
	}
	if flags.Changed("asset") {
		cfg.Display.Asset = serveOpts.Asset
	}
	if flags.Changed("width") {
		cfg.Display.Width = serveOpts.Width
	}
	if flags.Changed("height") {
		cfg.Display.Height = serveOpts.Height
	}
	if flags.Changed("max-faces") {
		cfg.Detector.MaxFaces = serveOpts.MaxFaces
	}
	if flags.Changed("debug") {
		cfg.Debug = serveOpts.Debug
	}
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	if err := application.Start(); err != nil {
		application.Stop()
		return err
	}
	defer application.Stop()

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: application.Handler()}
	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	ctx := cmd.Context()
	if serveOpts.Tray {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		// The tray owns the main goroutine until Quit.
		runTray(ctx, cancel, application, cfg.Server.Addr)
	}

	select {
	case <-ctx.Done():
		log.Println("Shutting down")
		return srv.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// runTray shows the tray menu until it quits or ctx is cancelled.
func runTray(ctx context.Context, cancel context.CancelFunc, application *app.App, addr string) {
	t := tray.New("monkeycam")
	surface := application.Surface()

	t.OnOpen(func() {
		if err := openBrowser(previewURL(addr)); err != nil {
			log.Printf("open preview: %v", err)
		}
	})
	t.OnRotate(func() {
		vp := surface.Viewport()
		if err := surface.Resize(overlay.Viewport{Width: vp.Height, Height: vp.Width}); err != nil {
			log.Printf("rotate display: %v", err)
		}
	})
	t.OnQuit(cancel)

	id, frames := surface.Subscribe()
	defer surface.Unsubscribe(id)
	go func() {
		for f := range frames {
			t.SetFaceCount(len(f.Placements))
		}
	}()
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

// previewURL returns the local URL of the MJPEG stream served on addr.
func previewURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/api/stream"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/stream"
}

func openBrowser(url string) error {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		name = "xdg-open"
	}
	return exec.Command(name, append(args, url)...).Start()
}
