package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catrobat/catroid-share/internal/config"
	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/events"
	"github.com/catrobat/catroid-share/internal/models"
	"github.com/catrobat/catroid-share/internal/progress"
	"github.com/catrobat/catroid-share/internal/project"
)

// projectSession bundles what a project command needs.
type projectSession struct {
	cfg        *config.Config
	manager    *project.Manager
	controller *project.Controller
	bus        *events.EventBus
}

func (s *projectSession) Close() {
	s.bus.Close()
}

// openProject loads the named project and wires a controller for it. With
// assumeYes, prompts accept their defaults and plays start the edited scene.
func openProject(cmd *cobra.Command, name string, assumeYes bool) (*projectSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	conn, err := newConnection(cfg)
	if err != nil {
		return nil, err
	}

	manager := project.NewManager(cfg.ProjectsDir, GetLogger())
	if name != "" {
		if _, err := manager.LoadByName(name); err != nil {
			return nil, err
		}
	}

	var prompter project.Prompter = newTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	if assumeYes {
		prompter = project.StaticPrompter{Play: project.PlayCurrentScene}
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	go logEvents(bus.SubscribeAll())

	opts := []project.ControllerOption{
		project.WithConnection(conn),
		project.WithEventBus(bus),
		project.WithLogger(GetLogger()),
	}
	if cfg.HideNXTSensorInfo {
		opts = append(opts, project.WithHiddenSensorInfo(models.ResourceLegoNXT))
	}
	if cfg.HideEV3SensorInfo {
		opts = append(opts, project.WithHiddenSensorInfo(models.ResourceLegoEV3))
	}
	controller := project.NewController(manager, prompter, consoleStage{out: cmd.OutOrStdout()}, opts...)

	if name != "" {
		if _, err := controller.ShowSensorConfigInfo(GetContext()); err != nil {
			GetLogger().Warn().Err(err).Msg("Failed to show sensor configuration notice")
		}
	}

	return &projectSession{cfg: cfg, manager: manager, controller: controller, bus: bus}, nil
}

// logEvents writes model changes, stage starts and finished transfers to
// the debug log.
func logEvents(ch <-chan events.Event) {
	log := GetLogger()
	for ev := range ch {
		switch e := ev.(type) {
		case *events.ProjectChangeEvent:
			log.Debug().Str("project", e.ProjectName).Str("scene", e.SceneName).
				Str("action", e.Action).Str("item", e.ItemName).Msg("Project changed")
		case *events.StageStartEvent:
			log.Debug().Str("project", e.ProjectName).Str("scene", e.SceneName).Msg("Stage started")
		case *events.ProgressEvent:
			if e.EndOfFile {
				log.Debug().Str("project", e.ProjectName).Int("notification", e.NotificationID).
					Int64("bytes", e.Bytes).Msg("Transfer finished")
			}
		}
	}
}

// newProjectCmd creates the 'project' command group.
func newProjectCmd() *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage local projects",
		Long: `Local project commands.

Commands:
  new     - Create a project with one scene
  list    - List projects
  show    - Show the scenes and sprites of a project
  import  - Unpack a .catrobat archive into the projects directory
  scene   - Scene commands
  sprite  - Sprite commands
  play    - Start a scene
  upload  - Pack and upload a project`,
	}

	projectCmd.AddCommand(newProjectNewCmd())
	projectCmd.AddCommand(newProjectListCmd())
	projectCmd.AddCommand(newProjectShowCmd())
	projectCmd.AddCommand(newProjectImportCmd())
	projectCmd.AddCommand(newSceneCmd())
	projectCmd.AddCommand(newSpriteCmd())
	projectCmd.AddCommand(newProjectPlayCmd())
	projectCmd.AddCommand(newProjectUploadCmd())

	return projectCmd
}

func newProjectNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager := project.NewManager(cfg.ProjectsDir, GetLogger())
			p, err := manager.NewProject(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s in %s\n", p.Name, p.Directory)
			return nil
		},
	}
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			names, err := project.NewManager(cfg.ProjectsDir, GetLogger()).ListProjects()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No projects in %s\n", cfg.ProjectsDir)
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newProjectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project>",
		Short: "Show the scenes and sprites of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer s.Close()
			printProject(cmd.OutOrStdout(), s.manager)
			return nil
		},
	}
}

func printProject(out io.Writer, manager *project.Manager) {
	p := manager.CurrentProject()
	fmt.Fprintf(out, "%s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(out, "  %s\n", p.Description)
	}
	for i, scene := range p.Scenes {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, scene.Name)
		for _, sprite := range scene.Sprites {
			looks := make([]string, 0, len(sprite.Looks))
			for _, look := range sprite.Looks {
				looks = append(looks, look.FileName)
			}
			fmt.Fprintf(out, "    %s [%s]\n", sprite.Name, strings.Join(looks, ", "))
		}
	}
}

func newProjectImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <archive.catrobat>",
		Short: "Unpack a project archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := project.NewManager(cfg.ProjectsDir, GetLogger()).ImportArchive(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s\n", p.Name, p.Directory)
			return nil
		},
	}
}

func newSceneCmd() *cobra.Command {
	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "Scene commands",
	}

	var assumeYes bool
	addCmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Add a scene with a background sprite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject(cmd, args[0], assumeYes)
			if err != nil {
				return err
			}
			defer s.Close()

			scene, err := s.controller.AddScene(GetContext())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added scene %s\n", scene.Name)
			return nil
		},
	}
	addCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Accept the suggested name")
	sceneCmd.AddCommand(addCmd)

	return sceneCmd
}

func newSpriteCmd() *cobra.Command {
	spriteCmd := &cobra.Command{
		Use:   "sprite",
		Short: "Sprite commands",
	}

	var assumeYes bool
	var scene string
	var source string

	addCmd := &cobra.Command{
		Use:   "add <project> <uri>",
		Short: "Add a sprite from an image",
		Long: `Add a sprite whose first look is the given image.

Sources:
  file     - a local path or file:// URI (default)
  library  - a media library look name or URL
  paint    - an image to use as the paint tool's result
  camera   - an image to use as the camera's result

Examples:
  catroid-share project sprite add Pong ./ball.png
  catroid-share project sprite add Pong cat.png --source library --scene "Scene 2"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := project.ParseImportSource(source)
			if err != nil {
				return err
			}

			s, err := openProject(cmd, args[0], assumeYes)
			if err != nil {
				return err
			}
			defer s.Close()

			if scene != "" {
				if err := s.controller.ShowSprites(scene); err != nil {
					return err
				}
			}

			data, err := importData(s, src, args[1])
			if err != nil {
				return err
			}

			sprite, err := s.controller.HandleImportResult(GetContext(), src, project.ImportResult{OK: true, Data: data})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added sprite %s to %s\n", sprite.Name, s.manager.EditedScene().Name)
			return nil
		},
	}
	addCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Accept the suggested name")
	addCmd.Flags().StringVarP(&scene, "scene", "s", "", "Target scene (default: first scene)")
	addCmd.Flags().StringVar(&source, "source", "file", "Import source: file, library, paint, camera")
	spriteCmd.AddCommand(addCmd)

	return spriteCmd
}

// importData turns a command argument into the import tool's result data.
// Paint and camera results are staged into their cache files.
func importData(s *projectSession, src project.ImportSource, arg string) (string, error) {
	switch src {
	case project.SourceLibrary:
		if strings.Contains(arg, "://") {
			return arg, nil
		}
		return strings.TrimSuffix(s.cfg.LibraryURL, "/") + "/" + arg, nil
	case project.SourcePaint:
		return "", stageFile(arg, s.controller.PaintCacheFile())
	case project.SourceCamera:
		return "", stageFile(arg, s.controller.CameraCacheFile())
	}
	return arg, nil
}

func stageFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("cannot read image: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0644)
}

func newProjectPlayCmd() *cobra.Command {
	var scene string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "play <project>",
		Short: "Start a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject(cmd, args[0], assumeYes)
			if err != nil {
				return err
			}
			defer s.Close()

			if scene != "" {
				if err := s.controller.ShowSprites(scene); err != nil {
					return err
				}
			}
			return s.controller.Play(GetContext())
		},
	}
	cmd.Flags().StringVarP(&scene, "scene", "s", "", "Edited scene (default: first scene)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Start the edited scene without asking")

	return cmd
}

func newProjectUploadCmd() *cobra.Command {
	var description string
	var language string

	cmd := &cobra.Command{
		Use:   "upload <project>",
		Short: "Pack and upload a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProject(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer s.Close()

			bar := progress.NewBarSink(-1, "Uploading "+args[0], os.Stderr)
			result, err := s.controller.Upload(GetContext(), project.UploadRequest{
				URL:            s.cfg.UploadURL(),
				Description:    description,
				Username:       s.cfg.Username,
				Token:          s.cfg.Token,
				Language:       language,
				Sink:           progress.Multi{bar, progress.NewEventSink(s.bus)},
				NotificationID: 1,
			})
			if err != nil {
				bar.Fail(err)
				return err
			}

			if result.ProjectID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as project %s\n", args[0], result.ProjectID)
				if result.Token != "" && result.Token != s.cfg.Token {
					if err := config.WriteTokenFile(config.GetDefaultTokenPath(), result.Token); err != nil {
						GetLogger().Warn().Err(err).Msg("Failed to store refreshed token")
					}
				}
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Raw)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVar(&language, "language", "", "Device language sent with the upload")

	return cmd
}

