package hal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Display DisplayConfig
	Hz      int
	// Ticks stops the run after that many ticks. Zero runs until ctx is done.
	Ticks uint64
}

// RunHeadless drives the app from a ticker without opening a window.
// A cancelled ctx and ErrExit both end the run without an error.
func RunHeadless(ctx context.Context, cfg HeadlessConfig, newApp NewAppFunc) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	dev, err := New(cfg.Display)
	if err != nil {
		return err
	}
	app, err := newApp(dev)
	if err != nil {
		return err
	}
	defer app.Close()

	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := dev.tick(app); err != nil {
				if errors.Is(err, ErrExit) {
					return nil
				}
				return err
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
