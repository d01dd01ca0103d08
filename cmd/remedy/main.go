// Package main provides the remedy command: it reads scanner-detected
// accessibility violations, plans and validates fixes, and applies the
// surviving fixes to the live page through a managed browser connection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/remedy/pkg/browser"
	appconfig "github.com/entrhq/remedy/pkg/config"
	"github.com/entrhq/remedy/pkg/oracle"
	"github.com/entrhq/remedy/pkg/pipeline"
	"github.com/entrhq/remedy/pkg/specialists"
	"github.com/entrhq/remedy/pkg/types"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration. Flags override the config
// file, which overrides the environment.
type CLIConfig struct {
	ConfigFile  string
	InputFile   string
	OutputFile  string
	Model       string
	APIKey      string
	BaseURL     string
	Workers     int
	Timeout     time.Duration
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("remedy v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Printf("Remediation failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (YAML, default ~/.remedy/config.yaml)")
	flag.StringVar(&cliConfig.InputFile, "input", "", "Path to violations JSON file (required)")
	flag.StringVar(&cliConfig.OutputFile, "output", "remediation-summary.json", "Output file for the remediation summary")
	flag.StringVar(&cliConfig.Model, "model", "", "Oracle model to use (overrides config)")
	flag.StringVar(&cliConfig.APIKey, "api-key", "", "Oracle API key (overrides config and OPENAI_API_KEY)")
	flag.StringVar(&cliConfig.BaseURL, "base-url", "", "Oracle API base URL (overrides config and OPENAI_BASE_URL)")
	flag.IntVar(&cliConfig.Workers, "workers", 0, "Concurrent remediation workers (overrides config)")
	flag.DurationVar(&cliConfig.Timeout, "timeout", 10*time.Minute, "Overall run timeout")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Remedy - Accessibility Violation Remediation Engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage: remedy [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Remediate violations from a scanner export\n")
		fmt.Fprintf(os.Stderr, "  remedy -input violations.json\n\n")
		fmt.Fprintf(os.Stderr, "  # Use a remote browser farm configured in a file\n")
		fmt.Fprintf(os.Stderr, "  remedy -input violations.json -config remedy.yaml\n\n")
	}

	flag.Parse()
	return cliConfig
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	if cliConfig.InputFile == "" {
		return fmt.Errorf("input file is required (use -input)")
	}

	cfg, err := appconfig.Load(cliConfig.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyCLIOverrides(cfg, cliConfig)

	inputs, err := readViolations(cliConfig.InputFile)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("input file %s contains no violations", cliConfig.InputFile)
	}

	client, err := newOracleClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create oracle client: %w", err)
	}
	registry := specialists.NewDefaultRegistry(client)

	manager := newBrowserManager(cfg)
	connector := pipeline.NewBrowserConnector(manager)
	defer func() {
		if err := connector.Disconnect(); err != nil {
			log.Printf("Browser disconnect failed: %v", err)
		}
	}()

	p := pipeline.New(registry, connector, pipeline.Config{
		Workers:         cfg.Pipeline.Workers,
		ReplanBudget:    cfg.Pipeline.ReplanBudget,
		PlanningTimeout: cfg.Pipeline.PlanningTimeout,
		Viewport:        browser.ViewportTag(cfg.Browser.Viewport),
	})
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("Page close failed: %v", err)
		}
	}()

	if cliConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliConfig.Timeout)
		defer cancel()
	}

	log.Printf("Starting remediation of %d violations...", len(inputs))

	result, runErr := p.Run(ctx, inputs)
	if result != nil {
		if writeErr := writeSummary(cliConfig.OutputFile, result); writeErr != nil {
			log.Printf("Failed to write summary: %v", writeErr)
		} else {
			log.Printf("Summary written to %s", cliConfig.OutputFile)
		}
		log.Printf("Run %s: fixed=%d skipped=%d error=%d in %s",
			result.RunID,
			result.Counts[types.StateFixed],
			result.Counts[types.StateSkipped],
			result.Counts[types.StateError],
			result.Duration)
		if len(result.FlaggedForReview) > 0 {
			log.Printf("%d violations flagged for human review", len(result.FlaggedForReview))
		}
	}
	if runErr != nil {
		return runErr
	}

	log.Printf("Remediation completed successfully")
	return nil
}

// applyCLIOverrides folds command-line flags into the loaded configuration.
func applyCLIOverrides(cfg *appconfig.Config, cliConfig *CLIConfig) {
	if cliConfig.Model != "" {
		cfg.Oracle.Model = cliConfig.Model
	}
	if cliConfig.APIKey != "" {
		cfg.Oracle.APIKey = cliConfig.APIKey
	}
	if cliConfig.BaseURL != "" {
		cfg.Oracle.BaseURL = cliConfig.BaseURL
	}
	if cliConfig.Workers > 0 {
		cfg.Pipeline.Workers = cliConfig.Workers
	}
}

func readViolations(path string) ([]types.ViolationInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}

	var inputs []types.ViolationInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse violations from %s: %w", path, err)
	}
	return inputs, nil
}

func newOracleClient(cfg *appconfig.Config) (*oracle.Client, error) {
	opts := []oracle.ClientOption{}
	if cfg.Oracle.Model != "" {
		opts = append(opts, oracle.WithModel(cfg.Oracle.Model))
	}
	if cfg.Oracle.BaseURL != "" {
		opts = append(opts, oracle.WithBaseURL(cfg.Oracle.BaseURL))
	}
	if cfg.Oracle.TokenBudget > 0 {
		opts = append(opts, oracle.WithTokenBudget(cfg.Oracle.TokenBudget))
	}
	return oracle.NewClient(cfg.Oracle.APIKey, opts...)
}

func newBrowserManager(cfg *appconfig.Config) *browser.Manager {
	if cfg.Browser.Mode == appconfig.BrowserModeRemote {
		opts := []browser.Option{}
		if policy, ok := retryPolicy(cfg.Browser.Retry); ok {
			opts = append(opts, browser.WithRetryPolicy(policy))
		}
		return browser.NewRemoteManager(cfg.Browser.Endpoint, cfg.Browser.Token, opts...)
	}
	return browser.NewLocalManager(browser.WithHeadless(cfg.Browser.Headless))
}

// retryPolicy maps config overrides onto the default remote retry schedule.
// Zero-valued fields keep the defaults.
func retryPolicy(rc appconfig.RetryConfig) (browser.RetryPolicy, bool) {
	if rc.MaxAttempts == 0 && rc.BaseDelay == 0 && rc.MaxDelay == 0 {
		return browser.RetryPolicy{}, false
	}
	policy := browser.DefaultRemoteRetryPolicy()
	if rc.MaxAttempts > 0 {
		policy.MaxAttempts = rc.MaxAttempts
	}
	if rc.BaseDelay > 0 {
		policy.BaseDelay = rc.BaseDelay
	}
	if rc.MaxDelay > 0 {
		policy.MaxDelay = rc.MaxDelay
	}
	return policy, true
}

func writeSummary(path string, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}
