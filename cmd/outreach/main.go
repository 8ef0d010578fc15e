package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"outreach/cmd/outreach/dashboard"
	"outreach/internal/api"
	"outreach/internal/config"
	"outreach/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiBase    string
	userID     string
	timeout    time.Duration

	// Resolved before any command runs
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "outreach - influencer search and email outreach console",
	Long: `outreach drives the influencer outreach API from the terminal.

Search tasks discover creators across platforms; finished tasks yield
deduplicated results that can be saved as influencers, drafted to, and
contacted through rate limited campaigns.

Run without arguments to start the interactive dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c
		if err := logging.Initialize(cfg.Logging); err != nil {
			return err
		}
		logging.Boot("command started", zap.String("command", cmd.CommandPath()), zap.String("api", cfg.API.BaseURL))

		// The dashboard owns the terminal; nothing may write to stderr.
		if interactive(cmd) {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runDashboard,
}

// dashboardCmd starts the interactive dashboard explicitly
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the interactive dashboard",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

// healthCmd checks that the API answers
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API server is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

// interactive reports whether cmd runs the dashboard.
func interactive(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "dashboard"
}

// loadConfig reads the config file and applies flag overrides on top of the
// file and environment.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiBase != "" {
		c.API.BaseURL = apiBase
	}
	if userID != "" {
		c.API.UserID = userID
	}
	if timeout > 0 {
		c.API.Timeout = timeout.String()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// newClient builds the API client for the resolved config. Every call is
// logged to the api category and mutating calls to the audit category.
func newClient() (*api.Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return api.NewClient(cfg.API.BaseURL,
		api.WithUserID(cfg.API.UserID),
		api.WithTimeout(cfg.GetAPITimeout()),
		api.WithLogger(logging.Get(logging.CategoryAPI)),
		api.WithObserver(logging.AuditCall),
	)
}

// commandContext returns a context cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return dashboard.Run(ctx, dashboard.Options{
		Client:     client,
		Config:     cfg,
		ConfigPath: path,
	})
}

func runHealth(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	start := time.Now()
	h, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check against %s failed: %w", client.BaseURL(), err)
	}
	logger.Debug("health", zap.String("status", h.Status), zap.Duration("elapsed", time.Since(start)))
	fmt.Printf("%s: %s (%s)\n", client.BaseURL(), h.Status, time.Since(start).Round(time.Millisecond))
	return nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <user config dir>/outreach/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "API base URL (or set OUTREACH_API_BASE env)")
	rootCmd.PersistentFlags().StringVar(&userID, "user-id", "", "X-User-Id header (or set OUTREACH_USER_ID env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (default from config, 30s)")

	// Add commands to root
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(influencersCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(campaignsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
