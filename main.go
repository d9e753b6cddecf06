package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"globe/app"
	"globe/hal"
	"globe/internal/buildinfo"
	"globe/internal/config"
	"globe/internal/logging"
)

var (
	configFile string
	logLevel   string
	headless   bool
	hz         int
	ticks      uint64
	query      string
)

var rootCmd = &cobra.Command{
	Use:           "globe",
	Short:         "Spinning globe with a location marker",
	Long:          `Renders a tilted, rotating Earth and places a marker on the location typed into the search bar.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGlobe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: globe.yaml in ., ./config or $HOME/.globe)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.Flags().BoolVar(&headless, "headless", false, "Run without a window")
	rootCmd.Flags().IntVar(&hz, "hz", 0, "Tick rate in headless mode (default from config)")
	rootCmd.Flags().Uint64Var(&ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run until interrupted)")
	rootCmd.Flags().StringVarP(&query, "query", "q", "", "Location to search for at startup")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGlobe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless.Enabled = headless
	}
	if hz > 0 {
		cfg.Headless.Hz = hz
	}
	if ticks > 0 {
		cfg.Headless.Ticks = ticks
	}

	log := newLogger(cfg)
	log.Info().Str("version", buildinfo.Short()).Bool("headless", cfg.Headless.Enabled).Msg("starting")

	var opts []app.Option
	if query != "" {
		opts = append(opts, app.WithInitialQuery(query))
	}
	newApp := app.NewFunc(cfg, log, opts...)
	display := hal.DisplayConfig{Width: cfg.Display.Width, Height: cfg.Display.Height}

	if cfg.Headless.Enabled {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return hal.RunHeadless(ctx, hal.HeadlessConfig{
			Display: display,
			Hz:      cfg.Headless.Hz,
			Ticks:   cfg.Headless.Ticks,
		}, newApp)
	}

	return hal.RunWindow(hal.WindowConfig{
		Display: display,
		Title:   "Globe (" + buildinfo.Short() + ")",
		Scale:   cfg.Display.Scale,
		TPS:     cfg.Display.TPS,
	}, newApp)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}
