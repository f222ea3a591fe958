// Package config - Run configuration for keyframe extraction, loaded from an
// optional YAML file and overridden by command line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/nvr-ai/go-keyframes/frames"
	"github.com/nvr-ai/go-keyframes/images"
	"github.com/nvr-ai/go-keyframes/keyframes"
	"github.com/nvr-ai/go-keyframes/overlay"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultOutputName is the result file written next to the video when no output
// path is given.
const DefaultOutputName = "keyframes.json"

// ErrInvalid is returned by Validate for an unusable configuration.
var ErrInvalid = errors.New("config: invalid")

// Config is a complete extraction run.
type Config struct {
	// Video is the input video file, or a directory for the images source.
	Video string `yaml:"video"`
	// Output is the result document path. Empty means DefaultOutputName next to Video.
	Output string `yaml:"output"`
	// Format is the result encoding: json or yaml.
	Format string `yaml:"format"`
	// Source selects the decoder: capture, ffmpeg or images.
	Source string `yaml:"source"`
	// FPS is the frame rate of an image sequence.
	FPS float64 `yaml:"fps"`
	// Workers is the number of concurrent detection goroutines.
	Workers int `yaml:"workers"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`
	// Profile enables periodic runtime reports.
	Profile bool `yaml:"profile"`

	// Detection holds the detector tunables.
	Detection shapes.Config `yaml:"detection"`
	// Overlay configures the optional debug renderings.
	Overlay Overlay `yaml:"overlay"`
}

// Overlay configures debug renderings. An empty Dir disables them.
type Overlay struct {
	Dir    string `yaml:"dir"`
	Width  int    `yaml:"width"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when neither a file nor flags override it.
func Default() Config {
	return Config{
		Format:    string(keyframes.FormatJSON),
		Source:    string(frames.KindCapture),
		FPS:       frames.DefaultFPS,
		Workers:   runtime.NumCPU(),
		LogLevel:  "info",
		Detection: shapes.DefaultConfig(),
		Overlay: Overlay{
			Width:  overlay.DefaultWidth,
			Format: string(images.FormatPNG),
		},
	}
}

// Load reads a YAML configuration file on top of Default().
//
// Fields missing from the file keep their default; unknown fields are an error.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged configuration. It is not validated.
//   - error: If the file cannot be read or parsed.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Validate reports the first problem that would make a run fail.
func (c Config) Validate() error {
	if c.Video == "" {
		return errors.Wrap(ErrInvalid, "video path is required")
	}
	if _, err := keyframes.ParseFormat(c.Format); err != nil {
		return errors.Wrapf(ErrInvalid, "format: %v", err)
	}
	if _, err := frames.ParseKind(c.Source); err != nil {
		return errors.Wrapf(ErrInvalid, "source: %v", err)
	}
	if c.Workers < 1 {
		return errors.Wrapf(ErrInvalid, "workers %d is below 1", c.Workers)
	}
	if c.FPS <= 0 {
		return errors.Wrapf(ErrInvalid, "fps %g is not positive", c.FPS)
	}
	if err := c.Detection.Validate(); err != nil {
		return errors.Wrapf(ErrInvalid, "detection: %v", err)
	}
	if c.Overlay.Dir != "" {
		if _, err := images.ParseFormat(c.Overlay.Format); err != nil {
			return errors.Wrapf(ErrInvalid, "overlay format: %v", err)
		}
	}
	return nil
}

// OutputPath returns Output, or DefaultOutputName in the directory of Video.
// For a yaml run without an explicit output the extension follows the format.
func (c Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	name := DefaultOutputName
	if format, err := keyframes.ParseFormat(c.Format); err == nil && format == keyframes.FormatYAML {
		name = "keyframes.yaml"
	}
	return filepath.Join(filepath.Dir(c.Video), name)
}
