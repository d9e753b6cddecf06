// Command locate resolves place names the way the globe search bar does and prints where the
// marker would go.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"globe/app"
	"globe/earth/geo"
	"globe/earth/geocode"
	"globe/earth/softgl"
	"globe/earth/view"
	"globe/hal"
	"globe/internal/config"
	"globe/internal/logging"
)

var (
	configFile string
	logLevel   string
	radius     float64
	asJSON     bool
	snapshot   string
)

var rootCmd = &cobra.Command{
	Use:           "locate <query>...",
	Short:         "Resolve a place name to coordinates and globe positions",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLocate,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level override")
	rootCmd.Flags().Float64VarP(&radius, "radius", "r", 0, "Globe radius (default from config)")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	rootCmd.Flags().StringVar(&snapshot, "snapshot", "", "Also write a PNG of the globe with the marker to this path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type result struct {
	Query   string    `json:"query"`
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	Legacy  geo.Point `json:"legacy"`
	Texture geo.Point `json:"texture"`
}

func runLocate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if radius <= 0 {
		radius = cfg.Globe.Radius
	}
	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: cmd.ErrOrStderr()})

	q := strings.Join(args, " ")
	c, err := locate(cmd.Context(), app.NewResolver(cfg, log), q, radius, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if snapshot == "" {
		return nil
	}
	if err := writeSnapshot(cfg, log, c, snapshot); err != nil {
		return err
	}
	log.Info().Str("path", snapshot).Msg("snapshot written")
	return nil
}

func locate(ctx context.Context, r geocode.Resolver, query string, radius float64, w io.Writer) (geo.Coordinate, error) {
	c, err := r.Resolve(ctx, query)
	if err != nil {
		return geo.Coordinate{}, err
	}
	res := result{
		Query:   query,
		Lat:     c.Lat,
		Lon:     c.Lon,
		Legacy:  geo.Project(c, radius),
		Texture: geo.ProjectTextureAligned(c, radius),
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return c, enc.Encode(res)
	}
	fmt.Fprintf(w, "%s: %s\n", res.Query, c)
	fmt.Fprintf(w, "  legacy:  %s\n", res.Legacy)
	fmt.Fprintf(w, "  texture: %s\n", res.Texture)
	return c, nil
}

// writeSnapshot renders one still frame of the configured globe with the marker at c.
func writeSnapshot(cfg *config.Config, log zerolog.Logger, c geo.Coordinate, path string) error {
	dev, err := hal.New(hal.DisplayConfig{Width: cfg.Display.Width, Height: cfg.Display.Height})
	if err != nil {
		return err
	}
	settings, err := app.Settings(cfg)
	if err != nil {
		return err
	}
	v, err := view.New(view.Params{
		Framebuffer: dev.Framebuffer(),
		Frames:      hal.NewFrameQueue(),
		Logger:      logging.Component(log, "view"),
		Settings:    settings,
	})
	if err != nil {
		return err
	}
	defer v.Close()
	if err := v.SetLocation(c); err != nil {
		return err
	}

	img := softgl.NewImageTarget(cfg.Display.Width, cfg.Display.Height)
	v.Draw(img)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := png.Encode(f, img.Img); err != nil {
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return f.Close()
}
