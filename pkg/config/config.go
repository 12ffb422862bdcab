// Package config loads and validates the scraper's runtime
// configuration from an optional YAML file plus environment
// overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/farescout/pkg/browser"
	"github.com/entrhq/farescout/pkg/cookies"
	"github.com/entrhq/farescout/pkg/logging"
	"github.com/entrhq/farescout/pkg/proxy"
)

// Environment overrides. Secrets belong in the environment (or a .env
// file), not in the config file.
const (
	EnvPhone    = "UBER_PHONE_NUMBER"
	EnvPassword = "UBER_PASSWORD"
	EnvOTP      = "UBER_OTP"
)

// Config is the full runtime configuration.
type Config struct {
	Auth    Auth    `yaml:"auth"`
	Proxy   Proxy   `yaml:"proxy"`
	Browser Browser `yaml:"browser"`
	Cookies Cookies `yaml:"cookies"`
	Output  Output  `yaml:"output"`
	Trip    Trip    `yaml:"trip"`
	Logging Logging `yaml:"logging"`
}

// Auth carries the account credentials.
type Auth struct {
	Phone    string `yaml:"phone"`
	Password string `yaml:"password"`

	// OTP is never read from the file; it arrives via UBER_OTP when
	// the run cannot prompt interactively.
	OTP string `yaml:"-"`
}

// Proxy configures egress rotation.
type Proxy struct {
	// List entries are host:port or host:port:username:password.
	List []string `yaml:"list"`

	// RotationThreshold replaces the browser session every N
	// navigations.
	RotationThreshold int `yaml:"rotation_threshold"`
}

// Browser configures launched sessions.
type Browser struct {
	Headless       bool   `yaml:"headless"`
	UserAgent      string `yaml:"user_agent"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	DisableImages  bool   `yaml:"disable_images"`
}

// Cookies configures the persisted jar.
type Cookies struct {
	Path string `yaml:"path"`
}

// Output configures where extracted quotes land.
type Output struct {
	Dir string `yaml:"dir"`
}

// Trip is the fare route to quote.
type Trip struct {
	PickupLatitude  float64 `yaml:"pickup_latitude"`
	PickupLongitude float64 `yaml:"pickup_longitude"`
	DropLatitude    float64 `yaml:"drop_latitude"`
	DropLongitude   float64 `yaml:"drop_longitude"`
}

// Logging configures log output.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used where the file and
// environment leave values unset. The trip defaults to the Cairo
// route the scraper was built around.
func Default() Config {
	return Config{
		Proxy: Proxy{
			RotationThreshold: browser.DefaultRotationThreshold,
		},
		Browser: Browser{
			Headless:       true,
			UserAgent:      browser.DefaultUserAgent,
			ViewportWidth:  browser.DefaultViewportWidth,
			ViewportHeight: browser.DefaultViewportHeight,
			DisableImages:  true,
		},
		Cookies: Cookies{Path: cookies.DefaultPath},
		Output:  Output{Dir: "."},
		Trip: Trip{
			PickupLatitude:  30.0272027,
			PickupLongitude: 31.1384884,
			DropLatitude:    30.0249469,
			DropLongitude:   30.8969389,
		},
		Logging: Logging{Level: logging.DefaultLevel},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates the result. An empty path skips
// the file and runs on defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPhone); v != "" {
		c.Auth.Phone = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Auth.Password = v
	}
	if v := os.Getenv(EnvOTP); v != "" {
		c.Auth.OTP = v
	}
}

// Validate reports configuration that cannot produce a working run.
func (c *Config) Validate() error {
	if c.Auth.Phone == "" {
		return fmt.Errorf("auth phone is required (set %s or auth.phone)", EnvPhone)
	}
	if c.Auth.Password == "" {
		return fmt.Errorf("auth password is required (set %s or auth.password)", EnvPassword)
	}
	if c.Proxy.RotationThreshold < 1 {
		return fmt.Errorf("proxy rotation_threshold must be at least 1, got %d", c.Proxy.RotationThreshold)
	}
	if c.Browser.ViewportWidth < 1 || c.Browser.ViewportHeight < 1 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d",
			c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if _, err := proxy.ParseList(c.Proxy.List); err != nil {
		return err
	}
	return nil
}
