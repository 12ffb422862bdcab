// Package main provides the farescout command line scraper.
// It drives a headless browser through the Uber mobile web app,
// collecting per-ride-type fare quotes into CSV files while rotating
// authenticated proxies underneath the session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/browser"
	appconfig "github.com/entrhq/farescout/pkg/config"
	"github.com/entrhq/farescout/pkg/cookies"
	"github.com/entrhq/farescout/pkg/logging"
	"github.com/entrhq/farescout/pkg/netid"
	"github.com/entrhq/farescout/pkg/output"
	"github.com/entrhq/farescout/pkg/proxy"
	"github.com/entrhq/farescout/pkg/retry"
	"github.com/entrhq/farescout/pkg/uber"
)

const (
	version        = "0.1.0" // Version of the farescout scraper
	defaultEnvFile = ".env"  // Credentials file picked up when present
)

// Config holds the command line configuration
type Config struct {
	ConfigPath  string
	EnvFile     string
	NoInput     bool
	ShowVersion bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("farescout v%s\n", version)
		return
	}

	// Credentials come from the environment, optionally seeded from an
	// env file before the configuration is read.
	if err := loadEnv(config.EnvFile); err != nil {
		log.Fatalf("Environment error: %v", err)
	}

	cfg, err := appconfig.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	// Run the scraper
	if runErr := run(ctx, cfg, config.NoInput); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
}

// parseFlags parses command line flags
func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.ConfigPath, "config", "", "Path to YAML configuration file (optional)")
	flag.StringVar(&config.EnvFile, "env", "", "Path to env file with credentials (default: .env when present)")
	flag.BoolVar(&config.NoInput, "no-input", false, "Disable interactive prompts (SMS challenges will fail)")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "farescout - Uber fare scraper\n\n")
		fmt.Fprintf(os.Stderr, "Usage: farescout [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  UBER_PHONE_NUMBER   Account phone number\n")
		fmt.Fprintf(os.Stderr, "  UBER_PASSWORD       Account password\n")
		fmt.Fprintf(os.Stderr, "  UBER_OTP            SMS code to use instead of prompting\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  farescout                                # Defaults plus .env credentials\n")
		fmt.Fprintf(os.Stderr, "  farescout -config farescout.yaml\n")
		fmt.Fprintf(os.Stderr, "  farescout -config farescout.yaml -no-input\n")
	}

	flag.Parse()
	return config
}

// loadEnv seeds the process environment from an env file. An explicit
// path must exist; the default .env is loaded only when present.
func loadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file '%s': %w", envFile, err)
		}
		return nil
	}

	if _, err := os.Stat(defaultEnvFile); err == nil {
		return godotenv.Load(defaultEnvFile)
	}
	return nil
}

// run executes the main application logic
func run(ctx context.Context, cfg appconfig.Config, noInput bool) error {
	logger, err := logging.New("farescout", cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	creds, err := proxy.ParseList(cfg.Proxy.List)
	if err != nil {
		return fmt.Errorf("loading proxy list: %w", err)
	}
	pool := proxy.NewPool(creds)

	// The real egress IP anchors leak detection. When it cannot be
	// resolved the checks are disabled rather than aborting the run.
	realIP := netid.NewResolver("", logger.Named("netid")).Resolve(ctx)
	if realIP == netid.Unknown {
		logger.Warn("real IP unknown, proxy leak checks disabled")
		realIP = ""
	}

	engine, err := browser.StartEngine()
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := engine.Stop(); stopErr != nil {
			logger.Warn("stopping browser engine", zap.Error(stopErr))
		}
	}()

	factory := browser.NewFactory(engine, pool, browser.FactoryConfig{
		Session: browser.SessionOptions{
			Headless:      cfg.Browser.Headless,
			UserAgent:     cfg.Browser.UserAgent,
			Viewport:      browser.Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight},
			DisableImages: cfg.Browser.DisableImages,
		},
		RealIP: realIP,
		Retry:  retry.Policy{Log: logger.Named("factory")},
	}, logger.Named("factory"))

	store := cookies.NewStore(cfg.Cookies.Path, logger.Named("cookies"))

	nav, err := browser.NewNavigator(factory, store, browser.NavigatorConfig{
		RotationThreshold: cfg.Proxy.RotationThreshold,
		Retry:             retry.Policy{Log: logger.Named("navigator")},
	}, logger.Named("navigator"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := nav.Close(); closeErr != nil {
			logger.Warn("closing browser session", zap.Error(closeErr))
		}
	}()

	sink := output.NewWriter(cfg.Output.Dir, logger.Named("output"))

	flow := uber.NewFlow(nav, store, otpProvider(cfg, noInput), sink, uber.FlowConfig{
		Phone:    cfg.Auth.Phone,
		Password: cfg.Auth.Password,
	}, logger.Named("uber"))

	pickup := uber.Coordinate{Latitude: cfg.Trip.PickupLatitude, Longitude: cfg.Trip.PickupLongitude}
	drop := uber.Coordinate{Latitude: cfg.Trip.DropLatitude, Longitude: cfg.Trip.DropLongitude}

	if err := uber.Run(ctx, flow, pickup, drop, logger); err != nil {
		return err
	}

	logger.Info("scrape complete")
	return nil
}

// otpProvider picks where SMS codes come from: a pre-supplied code,
// nothing at all in no-input mode, or an interactive terminal prompt.
func otpProvider(cfg appconfig.Config, noInput bool) uber.OTPProvider {
	if cfg.Auth.OTP != "" {
		return uber.StaticOTP(cfg.Auth.OTP)
	}
	if noInput {
		return nil
	}
	return &terminalOTP{}
}
