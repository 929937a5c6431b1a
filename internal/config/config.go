package config

import (
	"clickmap/pkg/apperr"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnginePlaywright = "playwright"
	EngineRod        = "rod"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	ScanConfig    *ScanConfig
}

type AppConfig struct {
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	Debug            bool   `envconfig:"DEBUG" default:"false"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`
}

type BrowserConfig struct {
	Engine         string `envconfig:"BROWSER_ENGINE" default:"playwright"`
	Headless       bool   `envconfig:"BROWSER_HEADLESS" default:"true"`
	Install        bool   `envconfig:"BROWSER_INSTALL" default:"true"`
	Timeout        int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	ViewportWidth  int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"720"`
	FullPage       bool   `envconfig:"BROWSER_FULL_PAGE" default:"true"`
}

type ScanConfig struct {
	URLFile          string  `envconfig:"SCAN_URL_FILE" default:"test_urls.txt"`
	OutputDir        string  `envconfig:"SCAN_OUTPUT_DIR" default:"./data"`
	VisDir           string  `envconfig:"SCAN_VIS_DIR" default:"./vis"`
	MaxAttempts      int     `envconfig:"SCAN_MAX_ATTEMPTS" default:"3"`
	CursorCheck      bool    `envconfig:"SCAN_CURSOR_CHECK" default:"true"`
	NavigationRate   float64 `envconfig:"SCAN_NAVIGATION_RATE" default:"0"`
	Annotate         bool    `envconfig:"SCAN_ANNOTATE" default:"false"`
	AnnotateMaxWidth uint    `envconfig:"SCAN_ANNOTATE_MAX_WIDTH" default:"0"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

// Validate rejects settings the scan cannot run with. Errors carry the
// invalid_argument code and the offending variable name.
func (c *Config) Validate() error {
	const op = "Validate"

	switch c.BrowserConfig.Engine {
	case EnginePlaywright, EngineRod:
	default:
		return invalid(op, "BROWSER_ENGINE", fmt.Errorf("unknown engine %q: want %q or %q", c.BrowserConfig.Engine, EnginePlaywright, EngineRod))
	}

	if c.ScanConfig.MaxAttempts < 1 {
		return invalid(op, "SCAN_MAX_ATTEMPTS", fmt.Errorf("%d must be at least 1", c.ScanConfig.MaxAttempts))
	}

	if c.ScanConfig.NavigationRate < 0 {
		return invalid(op, "SCAN_NAVIGATION_RATE", fmt.Errorf("%v must not be negative", c.ScanConfig.NavigationRate))
	}

	if c.ScanConfig.OutputDir == "" {
		return invalid(op, "SCAN_OUTPUT_DIR", fmt.Errorf("must not be empty"))
	}

	return nil
}

func invalid(op, field string, err error) error {
	return apperr.Wrap(op, apperr.CodeInvalidArgument, fmt.Errorf("%s: %w", field, err), map[string]any{
		apperr.MetaField:  field,
		apperr.MetaReason: "invalid_config",
		apperr.MetaStage:  apperr.StageConfig,
	})
}
