// Package config loads globe settings from defaults, an optional YAML file and GLOBE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"globe/earth/geo"
	"globe/earth/softgl"
)

const (
	// FileName is the config file looked up when no explicit path is given.
	FileName  = "globe"
	EnvPrefix = "GLOBE"
)

var ErrInvalid = errors.New("invalid config")

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DisplayConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	Scale  int `mapstructure:"scale"`
	// TPS is the window update rate. Zero follows the display refresh.
	TPS       int  `mapstructure:"tps"`
	Wireframe bool `mapstructure:"wireframe"`
}

type HeadlessConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Hz      int    `mapstructure:"hz"`
	Ticks   uint64 `mapstructure:"ticks"`
}

type GlobeConfig struct {
	Radius             float64 `mapstructure:"radius"`
	TiltDeg            float64 `mapstructure:"tiltDeg"`
	RotationSpeed      float64 `mapstructure:"rotationSpeed"`
	Segments           int     `mapstructure:"segments"`
	Rings              int     `mapstructure:"rings"`
	Projection         string  `mapstructure:"projection"`
	MarkerFollowsGlobe bool    `mapstructure:"markerFollowsGlobe"`
}

type MarkerConfig struct {
	Radius float64 `mapstructure:"radius"`
}

type CameraConfig struct {
	// Projection is "perspective" or "orthographic".
	Projection string    `mapstructure:"projection"`
	FOVDeg     float64   `mapstructure:"fovDeg"`
	OrthoSize  float64   `mapstructure:"orthoSize"`
	Near       float64   `mapstructure:"near"`
	Far        float64   `mapstructure:"far"`
	Position   []float64 `mapstructure:"position"`
}

type GeocodeConfig struct {
	BaseURL   string        `mapstructure:"baseURL"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"userAgent"`
}

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Display  DisplayConfig  `mapstructure:"display"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Globe    GlobeConfig    `mapstructure:"globe"`
	Marker   MarkerConfig   `mapstructure:"marker"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("display.width", 320)
	v.SetDefault("display.height", 320)
	v.SetDefault("display.scale", 2)
	v.SetDefault("display.tps", 0)
	v.SetDefault("display.wireframe", false)

	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.hz", 60)
	v.SetDefault("headless.ticks", 0)

	v.SetDefault("globe.radius", 2.0)
	v.SetDefault("globe.tiltDeg", 23.5)
	v.SetDefault("globe.rotationSpeed", 0.015)
	v.SetDefault("globe.segments", 32)
	v.SetDefault("globe.rings", 16)
	v.SetDefault("globe.projection", "legacy")
	v.SetDefault("globe.markerFollowsGlobe", false)

	v.SetDefault("marker.radius", 0.1)

	v.SetDefault("camera.projection", "perspective")
	v.SetDefault("camera.fovDeg", 75.0)
	v.SetDefault("camera.orthoSize", 2.5)
	v.SetDefault("camera.near", 0.1)
	v.SetDefault("camera.far", 1000.0)
	v.SetDefault("camera.position", []float64{0, 1, 8})

	v.SetDefault("geocode.baseURL", "https://geocode.xyz")
	v.SetDefault("geocode.timeout", "10s")
	v.SetDefault("geocode.userAgent", "globe")
}

// New returns a viper instance with defaults, config search paths and env binding set up.
// An empty path searches ./, ./config and $HOME/.globe for globe.yaml.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.globe")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file into v. A missing file is fine unless it was named explicitly.
func Read(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("error reading config file: %w", err)
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads defaults, the config file at path (or the default search paths) and the
// environment.
func Load(path string) (*Config, error) {
	v := New(path)
	if err := Read(v, path != ""); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate rejects settings the view cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		check(false, "log.format %q (want text or json)", c.Log.Format)
	}

	check(c.Display.Width > 0 && c.Display.Height > 0, "display size %dx%d", c.Display.Width, c.Display.Height)
	check(c.Display.Scale > 0, "display.scale %d", c.Display.Scale)
	check(c.Display.TPS >= 0, "display.tps %d", c.Display.TPS)
	check(c.Headless.Hz > 0, "headless.hz %d", c.Headless.Hz)

	check(c.Globe.Radius > 0, "globe.radius %v", c.Globe.Radius)
	check(c.Globe.RotationSpeed >= 0, "globe.rotationSpeed %v", c.Globe.RotationSpeed)
	check(c.Globe.Segments >= 3, "globe.segments %d", c.Globe.Segments)
	check(c.Globe.Rings >= 2, "globe.rings %d", c.Globe.Rings)
	check((c.Globe.Segments+1)*(c.Globe.Rings+1) <= softgl.MaxVertices, "globe mesh too dense: %dx%d", c.Globe.Segments, c.Globe.Rings)
	if _, err := geo.ProjectionByName(c.Globe.Projection); err != nil {
		check(false, "globe.projection: %v", err)
	}

	check(c.Marker.Radius > 0, "marker.radius %v", c.Marker.Radius)

	switch c.Camera.Projection {
	case "perspective", "orthographic":
	default:
		check(false, "camera.projection %q (want perspective or orthographic)", c.Camera.Projection)
	}
	check(c.Camera.FOVDeg > 0 && c.Camera.FOVDeg < 180, "camera.fovDeg %v", c.Camera.FOVDeg)
	check(c.Camera.OrthoSize > 0, "camera.orthoSize %v", c.Camera.OrthoSize)
	check(c.Camera.Near > 0 && c.Camera.Far > c.Camera.Near, "camera near/far %v/%v", c.Camera.Near, c.Camera.Far)
	check(len(c.Camera.Position) == 3, "camera.position needs 3 values, got %d", len(c.Camera.Position))

	check(c.Geocode.BaseURL != "", "geocode.baseURL is empty")
	check(c.Geocode.Timeout > 0, "geocode.timeout %v", c.Geocode.Timeout)

	return errors.Join(errs...)
}
