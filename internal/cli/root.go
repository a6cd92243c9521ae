// Package cli provides the command-line interface for catroid-share.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/catrobat/catroid-share/internal/config"
	inthttp "github.com/catrobat/catroid-share/internal/http"
	"github.com/catrobat/catroid-share/internal/logging"
	"github.com/catrobat/catroid-share/internal/version"
	"github.com/catrobat/catroid-share/internal/web"
)

var (
	// Global flags
	cfgFile     string
	envFile     string
	serverURL   string
	token       string
	tokenFile   string // Path to file containing the upload token
	projectsDir string
	verbose     bool
	debug       bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "catroid-share",
		Short: "Catroid project sharing client",
		Long: `catroid-share ` + version.Version + ` - Built: ` + version.BuildTime + `
Uploads, downloads and edits Catroid projects.

Transfers:
  upload, download, post and check-token talk to the sharing service.

Projects:
  project manages local projects, their scenes and sprites.

Development:
  serve runs a local sharing service for testing.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(-1) // Debug level (zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file with CATROID_* variables")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Sharing service URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Upload token (overrides all other sources)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "Path to file containing the upload token")
	rootCmd.PersistentFlags().StringVar(&projectsDir, "projects-dir", "", "Local projects directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion script",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletion(out)
			}
			return fmt.Errorf("unsupported shell: %s", args[0])
		},
	}
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newProjectCmd())
	rootCmd.AddCommand(newServeCmd())

	AddShortcuts(rootCmd)
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig resolves the effective configuration from the .env file, the
// config file and the global flags.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	path := cfgFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	cfg, err := config.LoadConfigCSV(path)
	if err != nil {
		return nil, err
	}

	cfg.MergeWithFlags(serverURL, token, tokenFile, projectsDir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newConnection builds the transfer wrapper for cfg.
func newConnection(cfg *config.Config) (*web.Connection, error) {
	client, err := inthttp.CreateTransferClient(cfg, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return web.NewConnection(client, GetLogger(),
		web.WithRetries(cfg.MaxRetries),
		web.WithProgressChunk(cfg.ProgressChunkBytes()),
		web.WithUserAgent("catroid-share/"+version.Version),
	), nil
}
