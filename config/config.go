// Package config loads viewer settings from mosaic.yaml, a .env file and
// MOSAIC_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/mosaic/interact"
	"github.com/milk9111/mosaic/layout"
	"github.com/milk9111/mosaic/links"
	"github.com/milk9111/mosaic/metadata"
	"github.com/milk9111/mosaic/state"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "mosaic.yaml"

const envPrefix = "MOSAIC_"

// DefaultLoadDelay spaces out image decodes so a large collection does not
// start them all at once.
const DefaultLoadDelay = 40 * time.Millisecond

type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// Layout tunes placement. Seed fixes the session shuffle; 0 picks one per
// run.
type Layout struct {
	GoalArea       float64 `yaml:"goal_area"`
	Margin         float64 `yaml:"margin"`
	Spacing        float64 `yaml:"spacing"`
	RandomAttempts int     `yaml:"random_attempts"`
	Seed           uint64  `yaml:"seed"`
}

type Resize struct {
	MinSize        float64 `yaml:"min_size"`
	MaxSize        float64 `yaml:"max_size"`
	PreserveAspect bool    `yaml:"preserve_aspect"`
	Snap           float64 `yaml:"snap"`
	AllowOverlap   bool    `yaml:"allow_overlap"`
}

// Storage settings. An empty Dir means the user config dir; Expiry is how
// long an untouched placement is kept.
type Storage struct {
	Dir    string        `yaml:"dir"`
	Quota  int64         `yaml:"quota_bytes"`
	Expiry time.Duration `yaml:"expiry"`
}

type Links struct {
	Document    string        `yaml:"document"`
	APIEndpoint string        `yaml:"api_endpoint"`
	Concurrency int           `yaml:"concurrency"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Attempts    int           `yaml:"attempts"`
}

type Config struct {
	Document     string        `yaml:"document"`
	ImageDir     string        `yaml:"image_dir"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	LoadDelay    time.Duration `yaml:"load_delay"`
	Watch        bool          `yaml:"watch"`
	Theme        string        `yaml:"theme"`

	Window  Window        `yaml:"window"`
	Layout  Layout        `yaml:"layout"`
	Bounds  layout.Bounds `yaml:"bounds"`
	Resize  Resize        `yaml:"resize"`
	Storage Storage       `yaml:"storage"`
	Links   Links         `yaml:"links"`
}

func Default() Config {
	lo := layout.DefaultOptions()
	rc := interact.DefaultResizeConfig()
	lc := links.DefaultConfig()
	return Config{
		Document:     metadata.DefaultDocument,
		FetchTimeout: metadata.DefaultTimeout,
		LoadDelay:    DefaultLoadDelay,
		Watch:        true,
		Window:       Window{Width: 1280, Height: 800, Title: "mosaic"},
		Layout: Layout{
			GoalArea:       lo.GoalArea,
			Margin:         lo.Margin,
			Spacing:        lo.Spacing,
			RandomAttempts: lo.RandomAttempts,
		},
		Bounds: layout.DefaultBounds(10),
		Resize: Resize{
			MinSize:        rc.MinSize,
			MaxSize:        rc.MaxSize,
			PreserveAspect: rc.PreserveAspect,
			AllowOverlap:   rc.AllowOverlap,
		},
		Storage: Storage{Quota: 5 << 20, Expiry: state.DefaultExpiry},
		Links: Links{
			Document:    links.DefaultDocument,
			Concurrency: lc.Concurrency,
			CacheTTL:    lc.CacheTTL,
			Attempts:    lc.Attempts,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error when path is the default file name.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from MOSAIC_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	parse := func(name string, set func(string) error) {
		if v, ok := lookup(envPrefix + name); ok {
			if err := set(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", envPrefix, name, err))
			}
		}
	}
	dur := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err == nil {
				*dst = d
			}
			return err
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(v)
			if err == nil {
				*dst = b
			}
			return err
		}
	}

	str("DOCUMENT", &c.Document)
	str("IMAGE_DIR", &c.ImageDir)
	str("THEME", &c.Theme)
	str("STATE_DIR", &c.Storage.Dir)
	str("LINKS", &c.Links.Document)
	str("LINK_API", &c.Links.APIEndpoint)
	parse("FETCH_TIMEOUT", dur(&c.FetchTimeout))
	parse("LOAD_DELAY", dur(&c.LoadDelay))
	parse("EXPIRY", dur(&c.Storage.Expiry))
	parse("WATCH", boolean(&c.Watch))
	parse("ALLOW_OVERLAP", boolean(&c.Resize.AllowOverlap))
	parse("PRESERVE_ASPECT", boolean(&c.Resize.PreserveAspect))
	parse("QUOTA", func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			c.Storage.Quota = n
		}
		return err
	})
	parse("SEED", func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			c.Layout.Seed = n
		}
		return err
	})
	parse("SNAP", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			c.Resize.Snap = f
		}
		return err
	})
	return errors.Join(errs...)
}

// Validate reports settings the viewer cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Document == "" {
		errs = append(errs, errors.New("config: document is required"))
	}
	if c.Layout.GoalArea <= 0 {
		errs = append(errs, errors.New("config: layout.goal_area must be positive"))
	}
	if c.Layout.Margin < 0 || c.Layout.Spacing < 0 {
		errs = append(errs, errors.New("config: layout margin and spacing must not be negative"))
	}
	if c.Resize.MinSize <= 0 || c.Resize.MaxSize < c.Resize.MinSize {
		errs = append(errs, fmt.Errorf("config: resize range [%v, %v] is invalid", c.Resize.MinSize, c.Resize.MaxSize))
	}
	if c.Resize.Snap < 0 {
		errs = append(errs, errors.New("config: resize.snap must not be negative"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("config: fetch_timeout must be positive"))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, errors.New("config: window size must be positive"))
	}
	return errors.Join(errs...)
}

// StateDir resolves where the persisted layout lives.
func (c Config) StateDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: state dir: %w", err)
	}
	return filepath.Join(base, "mosaic"), nil
}

// ImageRoot is where image files are resolved from: ImageDir, or the
// directory holding a local document.
func (c Config) ImageRoot() string {
	if c.ImageDir != "" {
		return c.ImageDir
	}
	if metadata.IsURL(c.Document) {
		return ""
	}
	return filepath.Dir(c.Document)
}

// Origin is the location layout state is scoped to.
func (c Config) Origin() string {
	if metadata.IsURL(c.Document) {
		return c.Document
	}
	if abs, err := filepath.Abs(c.Document); err == nil {
		return abs
	}
	return c.Document
}

func (c Config) LayoutOptions() layout.Options {
	return layout.Options{
		GoalArea:       c.Layout.GoalArea,
		Margin:         c.Layout.Margin,
		Spacing:        c.Layout.Spacing,
		RandomAttempts: c.Layout.RandomAttempts,
	}
}

func (c Config) DragConfig() interact.DragConfig {
	return interact.DragConfig{Bounds: c.Bounds, Spacing: c.Layout.Spacing}
}

func (c Config) ResizeConfig() interact.ResizeConfig {
	return interact.ResizeConfig{
		MinSize:        c.Resize.MinSize,
		MaxSize:        c.Resize.MaxSize,
		PreserveAspect: c.Resize.PreserveAspect,
		Snap:           c.Resize.Snap,
		AllowOverlap:   c.Resize.AllowOverlap,
		Spacing:        c.Layout.Spacing,
	}
}

func (c Config) LinksConfig() links.Config {
	lc := links.DefaultConfig()
	lc.Concurrency = c.Links.Concurrency
	lc.CacheTTL = c.Links.CacheTTL
	lc.Attempts = c.Links.Attempts
	return lc
}
