// Package cli provides configuration management commands.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catrobat/catroid-share/internal/config"
	inthttp "github.com/catrobat/catroid-share/internal/http"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage catroid-share configuration",
		Long: `Configuration management commands for catroid-share.

Commands:
  show  - Display current configuration
  save  - Write the effective configuration to the config file
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSaveCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration after applying the config file,
CATROID_* environment variables and command-line flags. The token is masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintf(out, "Server URL:       %s\n", cfg.ServerURL)
	fmt.Fprintf(out, "Upload URL:       %s\n", cfg.UploadURL())
	fmt.Fprintf(out, "Check token URL:  %s\n", cfg.CheckTokenURL())
	fmt.Fprintf(out, "Media library:    %s\n", cfg.LibraryURL)
	fmt.Fprintf(out, "Username:         %s\n", valueOrNone(cfg.Username))
	fmt.Fprintf(out, "Token:            %s\n", maskToken(cfg.Token))
	fmt.Fprintf(out, "Projects dir:     %s\n", cfg.ProjectsDir)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Proxy mode:       %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(out, "Proxy:            %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
	}
	if inthttp.NeedsProxyPassword(cfg) {
		fmt.Fprintln(out, "                  (proxy password required at runtime)")
	}
	fmt.Fprintf(out, "Max retries:      %d\n", cfg.MaxRetries)
	fmt.Fprintf(out, "HTTP/2:           %v\n", cfg.EnableHTTP2)
	fmt.Fprintf(out, "Progress chunk:   %d KiB\n", cfg.ProgressChunkBytes()/1024)
	fmt.Fprintf(out, "Workers:          %d\n", cfg.Workers)
}

func valueOrNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

// maskToken keeps only the last four characters of a token.
func maskToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

// newConfigSaveCmd creates the 'config save' command.
func newConfigSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the config file",
		Long: `Write the effective configuration to the config file. Tokens and
proxy passwords are never written; a token given with --token is stored in
the token file with 0600 permissions instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path := cfgFile
			if path == "" {
				path = config.GetDefaultConfigPath()
			}
			if err := config.SaveConfigCSV(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)

			if token != "" {
				tokenPath := config.GetDefaultTokenPath()
				if err := config.WriteTokenFile(tokenPath, token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", tokenPath)
			}
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", config.GetDefaultConfigPath())
			fmt.Fprintf(cmd.OutOrStdout(), "Token file:  %s\n", config.GetDefaultTokenPath())
		},
	}
}
