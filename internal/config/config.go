// Package config provides configuration management for the labelsplit
// application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/parcelops/labelsplit/internal/classify"
	"github.com/parcelops/labelsplit/internal/extract"
	"github.com/parcelops/labelsplit/internal/imaging"
	"github.com/parcelops/labelsplit/internal/ocr"
)

// Config holds all configuration settings for the labelsplit application.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// Input is the merged label PDF to split
	Input string

	// OutDir is the directory where single-page PDFs will be written
	OutDir string

	// DPI is the page render resolution
	DPI int

	// BBox is the primary crop region as "x,y,w,h" in rendered pixels
	BBox string

	// BBox2 and BBox3 are the optional secondary and tertiary regions used
	// by the probing and voting classification modes
	BBox2 string
	BBox3 string

	// Mode selects the classification strategy (single, template, uni, smart)
	Mode string

	// Regex is the generic extraction pattern
	Regex string

	// Prefix is prepended to every output filename
	Prefix string

	// Workers overrides the engine-derived worker count (0 = automatic)
	Workers int

	// CorrectionEnabled toggles look-alike character correction
	CorrectionEnabled bool

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// OCR configuration for the recognition backend
	OCR OCRConfig

	// Template configuration for template classification mode
	Template TemplateConfig
}

// OCRConfig holds configuration for the recognition backend
type OCRConfig struct {
	// Engine is the backend to use (tesseract, paddle, rapid, remote, vision)
	Engine string

	// TessdataPrefix overrides the Tesseract traineddata directory
	TessdataPrefix string

	// Languages specifies the Tesseract languages (e.g. "eng")
	Languages string

	// EnginePath overrides the paddle/rapid executable lookup
	EnginePath string

	// RemoteEndpoint is the HTTP OCR service URL for the remote backend
	RemoteEndpoint string

	// APIKey is the API key for the vision backend, typically from
	// OPENAI_API_KEY or LABELSPLIT_OCR_API_KEY
	APIKey string

	// Model is the vision model name
	Model string
}

// TemplateConfig holds template classification settings
type TemplateConfig struct {
	// USPS, GOFO and Uni are paths to the carrier template images. An empty
	// path disables that carrier's template.
	USPS string
	GOFO string
	Uni  string

	// Mode is the window scoring mode (diff, ncc)
	Mode string

	// Threshold overrides the mode's default match threshold (0 = default)
	Threshold float64
}

// Load reads configuration from multiple sources and returns a Config instance.
// Sources are checked in this order: CLI flags > env vars > config file > defaults.
// Pass the viper instance the CLI bound its flags to, or nil for the global one.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".labelsplit")
			v.SetConfigType("yaml")
		}
	}

	// Config file is optional; env vars and defaults cover the rest.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("LABELSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	config := &Config{
		Input:             v.GetString("input"),
		OutDir:            v.GetString("out-dir"),
		DPI:               v.GetInt("dpi"),
		BBox:              v.GetString("bbox"),
		BBox2:             v.GetString("bbox2"),
		BBox3:             v.GetString("bbox3"),
		Mode:              v.GetString("mode"),
		Regex:             v.GetString("regex"),
		Prefix:            v.GetString("prefix"),
		Workers:           v.GetInt("workers"),
		CorrectionEnabled: v.GetBool("correction"),
		LogLevel:          v.GetString("log-level"),
		OCR: OCRConfig{
			Engine:         v.GetString("engine"),
			TessdataPrefix: v.GetString("tessdata-prefix"),
			Languages:      v.GetString("languages"),
			EnginePath:     v.GetString("engine-path"),
			RemoteEndpoint: v.GetString("remote-endpoint"),
			APIKey:         v.GetString("api-key"),
			Model:          v.GetString("vision-model"),
		},
		Template: TemplateConfig{
			USPS:      v.GetString("template-usps"),
			GOFO:      v.GetString("template-gofo"),
			Uni:       v.GetString("template-uni"),
			Mode:      v.GetString("template-mode"),
			Threshold: v.GetFloat64("template-threshold"),
		},
	}

	if config.OCR.APIKey == "" {
		config.OCR.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("out-dir", "labels")
	v.SetDefault("dpi", 300)
	v.SetDefault("bbox", "")
	v.SetDefault("bbox2", "")
	v.SetDefault("bbox3", "")
	v.SetDefault("mode", "single")
	v.SetDefault("regex", extract.DefaultPattern)
	v.SetDefault("prefix", "")
	v.SetDefault("workers", 0)
	v.SetDefault("correction", true)
	v.SetDefault("log-level", "info")

	v.SetDefault("engine", string(ocr.EngineTesseract))
	v.SetDefault("tessdata-prefix", "")
	v.SetDefault("languages", "eng")
	v.SetDefault("engine-path", "")
	v.SetDefault("remote-endpoint", ocr.DefaultRemoteEndpoint)
	v.SetDefault("api-key", "")
	v.SetDefault("vision-model", ocr.DefaultVisionModel)

	v.SetDefault("template-usps", "")
	v.SetDefault("template-gofo", "")
	v.SetDefault("template-uni", "")
	v.SetDefault("template-mode", "diff")
	v.SetDefault("template-threshold", 0.0)
}

// Validate checks that the configuration is valid and internally consistent.
// Every check here runs before any page work begins.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input cannot be empty")
	}
	if info, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("input file %s: %w", c.Input, err)
	} else if info.IsDir() {
		return fmt.Errorf("input %s is a directory", c.Input)
	}

	if c.OutDir == "" {
		return fmt.Errorf("out-dir cannot be empty")
	}
	if strings.HasPrefix(c.OutDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand home directory in out-dir: %w", err)
		}
		c.OutDir = filepath.Join(home, c.OutDir[2:])
	}

	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}

	if c.BBox == "" {
		return fmt.Errorf("bbox cannot be empty")
	}
	for _, bbox := range []string{c.BBox, c.BBox2, c.BBox3} {
		if bbox == "" {
			continue
		}
		if _, err := imaging.ParseBox(bbox); err != nil {
			return err
		}
	}

	mode, err := classify.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	c.Mode = string(mode)

	if c.Regex == "" {
		return fmt.Errorf("regex cannot be empty")
	}
	if _, err := regexp.Compile(c.Regex); err != nil {
		return fmt.Errorf("invalid regex %q: %w", c.Regex, err)
	}

	engine, err := ocr.ParseEngine(c.OCR.Engine)
	if err != nil {
		return err
	}
	c.OCR.Engine = string(engine)

	if engine == ocr.EngineVision && c.OCR.APIKey == "" {
		return fmt.Errorf("api-key is required for the vision engine")
	}

	switch strings.ToLower(c.Template.Mode) {
	case "diff", "ncc":
		c.Template.Mode = strings.ToLower(c.Template.Mode)
	default:
		return fmt.Errorf("invalid template-mode %q, must be one of: diff, ncc", c.Template.Mode)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	return nil
}

// Regions returns the configured crop boxes in priority order. Validate must
// have succeeded first.
func (c *Config) Regions() ([]imaging.Box, error) {
	var regions []imaging.Box
	for _, bbox := range []string{c.BBox, c.BBox2, c.BBox3} {
		if bbox == "" {
			continue
		}
		box, err := imaging.ParseBox(bbox)
		if err != nil {
			return nil, err
		}
		regions = append(regions, box)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("bbox cannot be empty")
	}
	return regions, nil
}
