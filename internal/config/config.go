// Package config resolves converter settings from defaults, SEGCONV_*
// environment variables (optionally seeded from a .env file), an optional
// JSON file and command-line flags, in increasing order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"segconv/internal/convert"
	"segconv/internal/geom"
)

// Conversion modes.
const (
	ModeYOLO    = "yolo"    // labelme JSON -> YOLO-seg txt
	ModeLabelme = "labelme" // YOLO-seg txt + images -> labelme JSON
	ModeFilter  = "filter"  // labelme JSON -> labelme JSON without some labels
)

type Config struct {
	Mode         string   `json:"mode"`
	Labels       string   `json:"labels"`
	InputDir     string   `json:"input_dir"`
	ImageDir     string   `json:"image_dir"`
	OutputDir    string   `json:"output_dir"`
	Tolerance    float64  `json:"tolerance"`
	UnknownLabel string   `json:"unknown_label"`
	DropLabels   []string `json:"drop_labels"`
	OpenRings    bool     `json:"open_rings"`
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// DefaultEnvFile is the dotenv file LoadEnvFile reads when given no path.
const DefaultEnvFile = ".env"

// LoadEnvFile exports the variables of a dotenv file that are not already
// set in the environment. A missing file is not an error; loaded reports
// whether one was read.
func LoadEnvFile(path string) (loaded bool, err error) {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return true, nil
}

// FromEnv returns the defaults overridden by SEGCONV_* variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Mode:         getEnv("SEGCONV_MODE", ""),
		Labels:       getEnv("SEGCONV_LABELS", ""),
		InputDir:     getEnv("SEGCONV_INPUT_DIR", ""),
		ImageDir:     getEnv("SEGCONV_IMAGE_DIR", ""),
		OutputDir:    getEnv("SEGCONV_OUTPUT_DIR", ""),
		Tolerance:    geom.DefaultTolerance,
		UnknownLabel: getEnv("SEGCONV_UNKNOWN_LABEL", ""),
		DropLabels:   splitList(getEnv("SEGCONV_DROP_LABELS", "")),
	}

	if v := os.Getenv("SEGCONV_TOLERANCE"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("SEGCONV_TOLERANCE: %w", err)
		}
		cfg.Tolerance = tol
	}
	if v := os.Getenv("SEGCONV_OPEN_RINGS"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SEGCONV_OPEN_RINGS: %w", err)
		}
		cfg.OpenRings = open
	}
	return cfg, nil
}

// LoadFile overlays the keys present in a JSON config file onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Parse resolves the configuration for the given command-line arguments
// (without the program name). It returns flag.ErrHelp for -h.
func Parse(args []string, output io.Writer) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("segconv", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage of segconv:")
		fmt.Fprintln(output, "  yolo:    -mode yolo -labels <file> -in <json dir> -out <txt dir>")
		fmt.Fprintln(output, "  labelme: -mode labelme -labels <file> -in <txt dir> -images <dir> -out <json dir>")
		fmt.Fprintln(output, "  filter:  -mode filter -drop-labels <a,b> -in <json dir> -out <json dir>")
		fmt.Fprintln(output)
		fs.PrintDefaults()
	}

	set := *cfg
	configPath := fs.String("config", getEnv("SEGCONV_CONFIG", ""), "JSON config `file`; flags override its values")
	fs.StringVar(&set.Mode, "mode", cfg.Mode, "Conversion `mode`: yolo, labelme or filter")
	fs.StringVar(&set.Labels, "labels", cfg.Labels, "Label list `file`, one class name per line")
	fs.StringVar(&set.InputDir, "in", cfg.InputDir, "Input annotation `dir`")
	fs.StringVar(&set.ImageDir, "images", cfg.ImageDir, "Image `dir` used for dimensions (labelme mode)")
	fs.StringVar(&set.OutputDir, "out", cfg.OutputDir, "Output annotation `dir`, created if missing")
	fs.Float64Var(&set.Tolerance, "tolerance", cfg.Tolerance, "Polygon simplification tolerance in `pixels` (0 disables)")
	fs.StringVar(&set.UnknownLabel, "unknown-label", cfg.UnknownLabel, "Unknown label `policy`: fail or substitute (default per mode)")
	drop := fs.String("drop-labels", strings.Join(cfg.DropLabels, ","), "Comma-separated `labels` to remove before converting")
	fs.BoolVar(&set.OpenRings, "open-rings", cfg.OpenRings, "Drop the closing duplicate point from generated polygons")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *configPath != "" {
		if err := LoadFile(*configPath, cfg); err != nil {
			return nil, err
		}
	}

	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = set.Mode
		case "labels":
			cfg.Labels = set.Labels
		case "in":
			cfg.InputDir = set.InputDir
		case "images":
			cfg.ImageDir = set.ImageDir
		case "out":
			cfg.OutputDir = set.OutputDir
		case "tolerance":
			cfg.Tolerance = set.Tolerance
		case "unknown-label":
			cfg.UnknownLabel = set.UnknownLabel
		case "drop-labels":
			cfg.DropLabels = splitList(*drop)
		case "open-rings":
			cfg.OpenRings = set.OpenRings
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings required by the mode are present.
func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeYOLO, ModeLabelme:
		if c.Labels == "" {
			errs = append(errs, errors.New("-labels is required"))
		}
	case ModeFilter:
		if len(c.DropLabels) == 0 {
			errs = append(errs, errors.New("-drop-labels is required in filter mode"))
		}
	case "":
		errs = append(errs, errors.New("-mode is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}

	if c.InputDir == "" {
		errs = append(errs, errors.New("-in is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("-out is required"))
	}
	if c.Mode == ModeLabelme && c.ImageDir == "" {
		errs = append(errs, errors.New("-images is required in labelme mode"))
	}
	if c.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("tolerance must not be negative, got %v", c.Tolerance))
	}
	if _, err := convert.ParsePolicy(c.UnknownLabel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options returns the converter options for this configuration.
func (c *Config) Options() convert.Options {
	policy, _ := convert.ParsePolicy(c.UnknownLabel) // checked by Validate
	return convert.Options{
		Tolerance:    c.Tolerance,
		UnknownLabel: policy,
		OpenRings:    c.OpenRings,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
