package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catrobat/catroid-share/internal/diskspace"
	"github.com/catrobat/catroid-share/internal/progress"
	"github.com/catrobat/catroid-share/internal/project"
	"github.com/catrobat/catroid-share/internal/transfer"
	"github.com/catrobat/catroid-share/internal/util/paths"
	"github.com/catrobat/catroid-share/internal/util/sanitize"
	"github.com/catrobat/catroid-share/internal/web"
)

// AddShortcuts adds the transfer commands to the root command.
func AddShortcuts(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadShortcut())
	rootCmd.AddCommand(newDownloadShortcut())
	rootCmd.AddCommand(newPostShortcut())
	rootCmd.AddCommand(newCheckTokenShortcut())
}

// newUploadShortcut creates the 'upload' command.
func newUploadShortcut() *cobra.Command {
	var title string
	var description string
	var language string

	cmd := &cobra.Command{
		Use:   "upload <archive.catrobat>",
		Short: "Upload a project archive",
		Long: `Upload a packed project to the sharing service.

The project title defaults to the archive name without its extension.

Examples:
  catroid-share upload Pong.catrobat
  catroid-share upload build/game.catrobat --title "Space Race"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := newConnection(cfg)
			if err != nil {
				return err
			}

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("cannot read archive: %w", err)
			}
			if title == "" {
				title = sanitize.BaseName(filepath.Base(path))
			}
			title = sanitize.SanitizeField(title)

			fields := map[string]string{
				web.FieldProjectTitle:       title,
				web.FieldProjectDescription: sanitize.SanitizeField(description),
				web.FieldUsername:           cfg.Username,
				web.FieldToken:              cfg.Token,
			}
			if language != "" {
				fields[web.FieldDeviceLanguage] = language
			}

			bar := progress.NewBarSink(info.Size(), "Uploading "+title, os.Stderr)
			body, err := conn.Upload(GetContext(), cfg.UploadURL(), fields, web.FieldUpload, path, bar, 1)
			if err != nil {
				bar.Fail(err)
				if web.IsNetworkError(err) {
					fmt.Fprintf(os.Stderr, "Check the server URL (%s) and proxy settings.\n", cfg.ServerURL)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Project title (default: archive name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVar(&language, "language", "", "Device language sent with the upload")

	return cmd
}

// newDownloadShortcut creates the 'download' command.
func newDownloadShortcut() *cobra.Command {
	var outputDir string
	var names []string
	var open bool

	cmd := &cobra.Command{
		Use:   "download <project-id> [project-id...]",
		Short: "Download shared projects",
		Long: `Download one or more shared projects as .catrobat archives.

Downloads run concurrently on the configured number of workers. Archives
that would land on the same path get their project id appended.

Examples:
  catroid-share download 42
  catroid-share download 42 97 --name 42=Pong --name 97=Pong -o ./downloads
  catroid-share download 42 --open`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := newConnection(cfg)
			if err != nil {
				return err
			}

			nameByID, err := parseKeyValues(names)
			if err != nil {
				return err
			}

			downloads, collisions := transfer.PlanDownloads(outputDir, nameByID, args)
			if collisions > 0 {
				GetLogger().Warn().Int("count", collisions).Msg("Renamed downloads with clashing file names")
			}

			runner := transfer.NewRunner(conn, cfg.Workers, nil, GetLogger())
			defer runner.Close()

			ui := progress.NewDownloadUI(len(downloads))
			if ui.IsTerminal() {
				// Log lines go above the bars instead of tearing them
				previous := GetLogger().Output()
				GetLogger().SetOutput(ui.Writer())
				defer GetLogger().SetOutput(previous)
			}
			bars := make([]*progress.DownloadBar, len(downloads))
			results, err := runner.DownloadAll(GetContext(), cfg.ServerURL, cfg.DownloadPath, downloads,
				func(index int, d paths.ProjectDownload) progress.Sink {
					bar := ui.AddBar(index, d.Name, d.LocalPath, 0)
					bars[index-1] = bar
					return bar
				})
			if err != nil {
				return err
			}

			failed := 0
			for i, r := range results {
				bars[i].Complete(r.Err)
				if r.Err != nil {
					failed++
					if diskspace.IsInsufficientSpaceError(r.Err) {
						GetLogger().Error().Err(r.Err).Str("dir", outputDir).Msg("Free up disk space and retry")
					}
				}
			}
			ui.Wait()

			if open {
				manager := project.NewManager(cfg.ProjectsDir, GetLogger())
				for _, r := range results {
					if r.Err != nil {
						continue
					}
					p, err := manager.ImportArchive(r.Download.LocalPath)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Opened %s in %s\n", p.Name, p.Directory)
				}
			}

			GetLogger().Debugf("Downloaded %d of %d projects", ui.GetCompleted()-failed, len(results))
			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", ".", "Output directory")
	cmd.Flags().StringArrayVar(&names, "name", nil, "Project name for an id, as id=name (repeatable)")
	cmd.Flags().BoolVar(&open, "open", false, "Unpack downloaded projects into the projects directory")

	return cmd
}

// newPostShortcut creates the 'post' command.
func newPostShortcut() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <url> [key=value...]",
		Short: "Send a form post and print the answer",
		Long: `Send an x-www-form-urlencoded POST and print the response body,
whatever its status code. A path without scheme is resolved against the
configured server.

Examples:
  catroid-share post /api/checkToken/check.json username=alice token=abc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := newConnection(cfg)
			if err != nil {
				return err
			}

			fields, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}

			target := args[0]
			if strings.HasPrefix(target, "/") {
				target = cfg.ServerURL + target
			}

			body, err := conn.SimplePost(GetContext(), target, fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	return cmd
}

// newCheckTokenShortcut creates the 'check-token' command.
func newCheckTokenShortcut() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-token",
		Short: "Check the configured upload token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Token == "" {
				return fmt.Errorf("no token configured: set CATROID_TOKEN, --token or --token-file")
			}
			conn, err := newConnection(cfg)
			if err != nil {
				return err
			}

			ok, err := conn.CheckToken(GetContext(), cfg.CheckTokenURL(), cfg.Username, cfg.Token)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("token rejected for user %q", cfg.Username)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token valid for user %q\n", cfg.Username)
			return nil
		},
	}
	return cmd
}

// parseKeyValues parses key=value pairs.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
