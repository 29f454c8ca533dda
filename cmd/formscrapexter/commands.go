// cmd/formscrapexter/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/valpere/FormScrapexter/internal/browser"
	"github.com/valpere/FormScrapexter/internal/config"
	"github.com/valpere/FormScrapexter/internal/crawl"
	"github.com/valpere/FormScrapexter/internal/monitoring"
	"github.com/valpere/FormScrapexter/internal/output"
	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// Exit code of a run stopped by SIGINT or SIGTERM
const exitInterrupted = 130

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Extract form fields from every URL in the URL list",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration `FILE`"},
			&cli.StringFlag{Name: "urls", Aliases: []string{"u"}, Usage: "URL list `FILE`, one URL per line"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "result `FILE` or database path"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: csv, json, excel, sqlite, postgresql, mysql or mongodb"},
			&cli.StringFlag{Name: "dsn", Usage: "database connection string"},
			&cli.IntFlag{Name: "batch-size", Usage: "URLs per browser session"},
			&cli.DurationFlag{Name: "timeout", Usage: "page load timeout"},
			&cli.DurationFlag{Name: "delay", Usage: "minimum interval between navigations"},
			&cli.IntFlag{Name: "retries", Usage: "session recoveries per URL"},
			&cli.StringFlag{Name: "checkpoint", Usage: "checkpoint `FILE` (default: output file + .checkpoint)"},
			&cli.StringFlag{Name: "driver", Usage: "browser driver: chromedp, rod or static"},
			&cli.BoolFlag{Name: "headful", Usage: "show the browser window"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve /metrics, /healthz and /status on `ADDR`"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Action: runAction,
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert a result CSV to JSON form records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Value: "form_fields_new.csv", Usage: "result CSV `FILE`"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "form_fields.json", Usage: "JSON `FILE`"},
		},
		Action: func(c *cli.Context) error {
			input, out := c.String("input"), c.String("output")
			fmt.Fprintf(c.App.Writer, "Converting %s to %s...\n", input, out)
			n, err := output.Convert(input, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Conversion complete. Processed %d form entries.\n", n)
			fmt.Fprintf(c.App.Writer, "JSON output saved to: %s\n", out)
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a configuration file",
		ArgsUsage: "<config.yaml>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return utils.NewError(utils.ErrCodeMissingConfig, "config file required").Build()
			}
			path := c.Args().First()
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Configuration file '%s' is valid\n", path)
			for _, w := range cfg.ValidateWithDetails().Warnings {
				fmt.Fprintf(c.App.Writer, "Warning: %s\n", w)
			}
			return nil
		},
	}
}

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "Print an annotated configuration template",
		Action: func(c *cli.Context) error {
			fmt.Fprint(c.App.Writer, config.Template)
			return nil
		},
	}
}

// loadRunConfig reads the configuration file, if any, and applies the
// command line overrides
func loadRunConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("urls") {
		cfg.URLsFile = c.String("urls")
	}
	if c.IsSet("format") {
		cfg.Output.Format = output.OutputFormat(strings.ToLower(c.String("format")))
		if !c.IsSet("output") && cfg.Output.Format.IsFile() {
			cfg.Output.File = strings.TrimSuffix(cfg.Output.File, filepath.Ext(cfg.Output.File)) +
				cfg.Output.Format.GetFileExtension()
		}
	}
	if c.IsSet("output") {
		cfg.Output.File = c.String("output")
		if !c.IsSet("format") {
			if f, ok := formatFromPath(cfg.Output.File); ok {
				cfg.Output.Format = f
			}
		}
	}
	if c.IsSet("dsn") {
		cfg.Output.DSN = c.String("dsn")
	}
	if c.IsSet("batch-size") {
		cfg.Crawl.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("timeout") {
		cfg.Crawl.PageTimeout = c.Duration("timeout")
	}
	if c.IsSet("delay") {
		cfg.Crawl.Delay = c.Duration("delay")
	}
	if c.IsSet("retries") {
		cfg.Crawl.MaxRetries = c.Int("retries")
	}
	if c.IsSet("checkpoint") {
		cfg.Crawl.Checkpoint = c.String("checkpoint")
	}
	if c.IsSet("driver") {
		cfg.Browser.Driver = c.String("driver")
	}
	if c.Bool("headful") {
		cfg.Browser.Headless = false
	}
	if c.IsSet("metrics-addr") {
		cfg.Monitoring.Enabled = true
		cfg.Monitoring.ListenAddress = c.String("metrics-addr")
	}
	if c.Bool("verbose") {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// formatFromPath infers a file format from the file extension
func formatFromPath(path string) (output.OutputFormat, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range []output.OutputFormat{output.FormatCSV, output.FormatJSON, output.FormatExcel, output.FormatSQLite} {
		if f.GetFileExtension() == ext {
			return f, true
		}
	}
	return "", false
}

func runAction(c *cli.Context) error {
	cfg, err := loadRunConfig(c)
	if err != nil {
		return err
	}

	logger, err := utils.NewLoggerWithOptions(cfg.LoggerOptions())
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeInvalidConfig, "failed to configure logging")
	}

	urls, err := crawl.LoadURLs(cfg.URLsFile)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return utils.NewError(utils.ErrCodeInvalidInput, "No URLs loaded. Please check your URL file.").
			WithContext("path", cfg.URLsFile).
			Build()
	}
	logger.Infof("Loaded %d URLs from %s", len(urls), cfg.URLsFile)

	cfg.Crawl.Checkpoint = cfg.Checkpoint()
	_, statErr := os.Stat(cfg.Crawl.Checkpoint)
	resume := statErr == nil

	patterns, err := cfg.PatternTable()
	if err != nil {
		return err
	}
	factory, err := browser.NewFactory(&cfg.Browser, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := output.NewStore(ctx, cfg.Output, resume)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics := monitoring.NewMetrics(monitoring.MetricsConfig{EnableGoMetrics: cfg.Monitoring.Enabled})
	if cfg.Monitoring.Enabled {
		go serveMonitoring(ctx, cfg, metrics, store, logger)
	}

	orchestrator := crawl.NewOrchestrator(cfg.Crawl, factory, scraper.NewExtractor(patterns, logger), store, logger).
		WithObserver(metrics)
	summary, err := orchestrator.Run(ctx, urls)
	metrics.RunFinished()

	if summary != nil {
		summary.Write(c.App.Writer, destination(cfg))
	}
	if summary != nil && summary.Interrupted && errors.Is(err, context.Canceled) {
		return cli.Exit("", exitInterrupted)
	}
	return err
}

func serveMonitoring(ctx context.Context, cfg *config.Config, metrics *monitoring.Metrics, store output.Store, logger utils.Logger) {
	health := monitoring.NewHealthManager()
	health.RegisterCheck(monitoring.GoroutineHealthCheck(1000))
	health.RegisterCheck(monitoring.ErrorRateHealthCheck(metrics, 10, 0.5))
	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		health.RegisterCheck(monitoring.PingHealthCheck(string(cfg.Output.Format), p.Ping))
	}

	server := monitoring.NewServer(cfg.Monitoring.ListenAddress, metrics, health, logger)
	if err := server.Start(ctx); err != nil {
		logger.Errorf("Monitoring server stopped: %v", err)
	}
}

// destination describes where results went for the run summary
func destination(cfg *config.Config) string {
	switch cfg.Output.Format {
	case output.FormatPostgreSQL, output.FormatMySQL:
		return fmt.Sprintf("%s table %s", cfg.Output.Format, cfg.Output.Table)
	case output.FormatMongoDB:
		return fmt.Sprintf("mongodb %s.%s", cfg.Output.Database, cfg.Output.Collection)
	}
	return cfg.Output.File
}
