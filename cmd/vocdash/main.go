package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voc-insights/vocdash/internal/config"
	"github.com/voc-insights/vocdash/internal/logging"
	"github.com/voc-insights/vocdash/internal/report"
	"github.com/voc-insights/vocdash/internal/reportapi"
	"github.com/voc-insights/vocdash/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vocdash",
	Short:   "VOC insights dashboard",
	Long:    "vocdash renders the VOC analytics report as a web dashboard and samples raw rows from the tracking sheet.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg.ApplyEnv(os.Getenv)

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Init(level, cfg.Logging.File); err != nil {
			return err
		}
		if path != "" {
			logging.Log.Debugf("using config %s", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportAPICmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(workbookCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("vocdash", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/vocdash/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the backend URL and the spreadsheet to sample.")
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		provider := report.NewHTTPProvider(cfg.Backend.BaseURL, cfg.Backend.Timeout)
		srv, err := server.New(provider, server.Options{
			MaxIssueQuotes: cfg.Dashboard.MaxIssueQuotes,
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			RequestTimeout: cfg.Server.RequestTimeout,
			Logger:         logging.Log,
		})
		if err != nil {
			return err
		}

		logging.Log.Infof("reading report from %s", provider.Endpoint())
		httpSrv := &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, httpSrv, logging.Log)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 3000, "Port to run the dashboard on")
}

// --- report-api command ---

var (
	reportAPIFile string
	reportAPIPort int
)

var reportAPICmd = &cobra.Command{
	Use:   "report-api",
	Short: "Serve a report JSON file at /report for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportAPIFile != "" {
			cfg.ReportAPI.ReportPath = reportAPIFile
		}
		if cmd.Flags().Changed("port") {
			cfg.ReportAPI.Port = reportAPIPort
		}

		h := reportapi.NewHandler(cfg.ReportAPI.ReportPath, cfg.ReportAPI.CORSAllowedOrigins, logging.Log)
		httpSrv := &http.Server{
			Addr:              net.JoinHostPort(cfg.ReportAPI.Host, strconv.Itoa(cfg.ReportAPI.Port)),
			Handler:           h.Router(),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		}

		logging.Log.Infof("serving report file %s", cfg.ReportAPI.ReportPath)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, httpSrv, logging.Log)
	},
}

func init() {
	reportAPICmd.Flags().StringVarP(&reportAPIFile, "file", "f", "", "Report JSON file (default from config or VOC_REPORT_PATH)")
	reportAPICmd.Flags().IntVarP(&reportAPIPort, "port", "p", 8000, "Port to serve on")
}
