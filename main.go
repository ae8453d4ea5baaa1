package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gridquery/app/interfaces"
	"gridquery/app/logging"
	"gridquery/app/settings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string

	jpath         string
	noHeader      bool
	noInfer       bool
	sheet         string
	pattern       string
	exclude       string
	includeSource bool
	maxFiles      int
}

var (
	opts globalOptions
	cfg  settings.Settings
)

var rootCmd = &cobra.Command{
	Use:           "gridquery",
	Short:         "Filter, sort, group, aggregate and pivot tabular data files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "settings file (default gridquery.yml next to the binary)")
	pf.StringVar(&opts.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
	pf.StringVar(&opts.logFormat, "log-format", "", "text or json")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	pf.StringVar(&opts.jpath, "jpath", "", "JSON path selecting the records of a JSON file")
	pf.BoolVar(&opts.noHeader, "no-header", false, "first CSV/XLSX row is data")
	pf.BoolVar(&opts.noInfer, "no-infer", false, "keep numeric-looking cells as text")
	pf.StringVar(&opts.sheet, "sheet", "", "XLSX sheet (default first sheet)")
	pf.StringVar(&opts.pattern, "pattern", "**/*", "file pattern when loading a directory")
	pf.StringVar(&opts.exclude, "exclude", "", "base-name pattern excluded from directory loads")
	pf.BoolVar(&opts.includeSource, "include-source", false, "add the source file column to directory loads")
	pf.IntVar(&opts.maxFiles, "max-files", 0, "maximum files loaded from a directory (default from settings)")

	rootCmd.AddCommand(newRunCmd(), newPivotCmd(), newWindowCmd(), newImportCmd(), newExploreCmd())
}

// setup resolves settings (defaults, file, environment, flags) and
// configures logging and the optional metrics endpoint
func setup() error {
	s := settings.GetEffectiveSettings()
	if opts.configPath != "" {
		fileSettings, err := settings.LoadFile(opts.configPath, settings.Defaults())
		if err != nil {
			return err
		}
		if s, err = settings.LoadEnv(settings.EnvPrefix, fileSettings); err != nil {
			return err
		}
	}
	if opts.logLevel != "" {
		s.LogLevel = strings.ToUpper(opts.logLevel)
	}
	if opts.logFormat != "" {
		s.LogFormat = opts.logFormat
	}
	cfg = s

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.Debug("settings resolved", "page_size", cfg.PageSize, "cache_mb", cfg.CacheSizeLimitMB, "workers", cfg.LoadWorkers)

	if opts.metricsAddr != "" {
		serveMetrics(opts.metricsAddr)
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logging.Info("serving metrics", "addr", addr)
}

// fileOptions builds parse options from the persistent flags
func fileOptions() interfaces.FileOptions {
	o := interfaces.DefaultFileOptions()
	o.JPath = opts.jpath
	o.NoHeaderRow = opts.noHeader
	o.InferNumbers = !opts.noInfer
	o.Sheet = opts.sheet
	o.FilePattern = opts.pattern
	o.ExcludePattern = opts.exclude
	o.IncludeSource = opts.includeSource
	o.MaxFiles = opts.maxFiles
	return o
}

func logger() interfaces.Logger {
	return logging.NewAdapter(nil)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
