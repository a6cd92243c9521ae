package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/catrobat/catroid-share/internal/devserver"
)

// newServeCmd creates the 'serve' command.
func newServeCmd() *cobra.Command {
	var addr string
	var storeDir string
	var libraryDir string
	var username string
	var serveToken string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local sharing service",
		Long: `Run a local sharing service for development and testing.

Uploads are stored in --store; looks in --library are served as the media
library. Without --serve-token every upload is accepted.

Examples:
  catroid-share serve --addr 127.0.0.1:8080
  catroid-share --server http://127.0.0.1:8080 upload Pong.catrobat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if storeDir == "" {
				storeDir = filepath.Join(".", "shared-projects")
			}
			srv, err := devserver.New(devserver.Options{
				StoreDir:   storeDir,
				LibraryDir: libraryDir,
				Username:   username,
				Token:      serveToken,
			}, GetLogger())
			if err != nil {
				return err
			}
			GetLogger().Infof("Storing uploads in %s", storeDir)
			if libraryDir == "" {
				GetLogger().Warnf("No --library given, media library requests will return 404")
			}
			return srv.ListenAndServe(GetContext(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&storeDir, "store", "", "Directory for uploaded projects (default: ./shared-projects)")
	cmd.Flags().StringVar(&libraryDir, "library", "", "Directory served as the media library")
	cmd.Flags().StringVar(&username, "serve-user", "", "Accepted username")
	cmd.Flags().StringVar(&serveToken, "serve-token", "", "Accepted token")

	return cmd
}
