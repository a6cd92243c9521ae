package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/events"
	"github.com/catrobat/catroid-share/internal/logging"
	"github.com/catrobat/catroid-share/internal/models"
	"github.com/catrobat/catroid-share/internal/util/paths"
	"github.com/catrobat/catroid-share/internal/util/sanitize"
	"github.com/catrobat/catroid-share/internal/web"
)

// View is the list the controller currently shows.
type View int

const (
	// ViewScenes lists the project's scenes.
	ViewScenes View = iota
	// ViewSprites lists the sprites of the edited scene.
	ViewSprites
)

func (v View) String() string {
	if v == ViewSprites {
		return "sprites"
	}
	return "scenes"
}

// Actions reported in ProjectChangeEvents.
const (
	ActionSceneAdded  = "scene_added"
	ActionSpriteAdded = "sprite_added"
	ActionLookAdded   = "look_added"
)

// ErrEmptyName is returned when a prompt yields an empty name.
var ErrEmptyName = errors.New("name must not be empty")

// Controller mediates between the scene/sprite list views and the project
// held by a Manager.
type Controller struct {
	manager  *Manager
	prompter Prompter
	stage    Stage
	conn     *web.Connection
	bus      *events.EventBus
	logger   *logging.Logger
	cacheDir string
	// hiddenSensorInfo lists robots whose sensor notice the user turned off.
	hiddenSensorInfo map[models.Resource]bool

	mu   sync.Mutex
	view View
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithConnection sets the connection used for library imports and uploads.
func WithConnection(conn *web.Connection) ControllerOption {
	return func(c *Controller) { c.conn = conn }
}

// WithEventBus publishes model changes and stage starts on bus.
func WithEventBus(bus *events.EventBus) ControllerOption {
	return func(c *Controller) { c.bus = bus }
}

// WithLogger sets the controller's logger.
func WithLogger(logger *logging.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logging.OrNop(logger).Named("controller") }
}

// WithCacheDir sets the directory import caches live in. It defaults to the
// user cache directory.
func WithCacheDir(dir string) ControllerOption {
	return func(c *Controller) { c.cacheDir = dir }
}

// WithHiddenSensorInfo turns off the sensor configuration notice for the
// given robots.
func WithHiddenSensorInfo(robots ...models.Resource) ControllerOption {
	return func(c *Controller) {
		if c.hiddenSensorInfo == nil {
			c.hiddenSensorInfo = make(map[models.Resource]bool)
		}
		for _, r := range robots {
			c.hiddenSensorInfo[r] = true
		}
	}
}

// WithView sets the initial view.
func WithView(v View) ControllerOption {
	return func(c *Controller) { c.view = v }
}

// NewController creates a controller editing the project opened in manager.
func NewController(manager *Manager, prompter Prompter, stage Stage, opts ...ControllerOption) *Controller {
	c := &Controller{
		manager:  manager,
		prompter: prompter,
		stage:    stage,
		logger:   logging.NewNopLogger(),
		view:     ViewScenes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheDir == "" {
		c.cacheDir = defaultCacheDir()
	}
	return c
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "catroid-share")
	}
	return filepath.Join(os.TempDir(), "catroid-share")
}

// View returns the list currently shown.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) setView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

// ShowScenes switches to the scene list.
func (c *Controller) ShowScenes() {
	c.setView(ViewScenes)
}

// ShowSprites selects sceneName for editing and switches to its sprite list.
func (c *Controller) ShowSprites(sceneName string) error {
	if err := c.manager.SetEditedScene(sceneName); err != nil {
		return err
	}
	c.setView(ViewSprites)
	return nil
}

// MediaLibraryCacheDir is where looks fetched from the media library are stored.
func (c *Controller) MediaLibraryCacheDir() string {
	return filepath.Join(c.cacheDir, constants.MediaLibraryCacheDirName)
}

// AddScene asks for a name and appends a new scene holding a background
// sprite. The suggested name is the first free "Scene n". When the sprite
// list is shown, the controller switches back to the scene list.
func (c *Controller) AddScene(ctx context.Context) (*models.Scene, error) {
	p := c.manager.CurrentProject()
	if p == nil {
		return nil, ErrNoProject
	}

	name, err := c.promptName(ctx, NameRequest{
		Title:   "New scene",
		Hint:    "Scene name",
		Default: paths.UniqueNumberedName(constants.DefaultSceneName, p.SceneNames()),
		Taken:   p.SceneNames(),
	})
	if err != nil {
		return nil, err
	}

	scene := models.NewScene(name)
	if err := p.AddScene(scene); err != nil {
		return nil, err
	}
	if err := scene.AddSprite(models.NewSprite(constants.BackgroundSpriteName)); err != nil {
		return nil, err
	}
	if err := c.manager.Save(); err != nil {
		return nil, err
	}

	c.logger.Info().Str("project", p.Name).Str("scene", name).Msg("Added scene")
	c.publishChange(p.Name, "", ActionSceneAdded, name)

	if c.View() != ViewScenes {
		c.ShowScenes()
	}
	return scene, nil
}

// AddSpriteFromURI asks for a sprite name and adds a sprite to the edited
// scene whose look is the image behind uri. The suggested name comes from
// the file name, or the default sprite name when the file name cannot be
// resolved or is the paint/camera temp image.
//
// A failure to copy the image is logged and the sprite is kept without a
// look. Cancelling clears the media library cache.
func (c *Controller) AddSpriteFromURI(ctx context.Context, uri string) (*models.Sprite, error) {
	p := c.manager.CurrentProject()
	if p == nil {
		return nil, ErrNoProject
	}
	scene := c.manager.EditedScene()
	if scene == nil {
		return nil, ErrNoScene
	}

	if isRemote(uri) {
		local, err := c.ImportFromLibrary(ctx, uri)
		if err != nil {
			return nil, err
		}
		uri = local
	}

	var resolvedName, lookFileName string
	resolvedFileName, ok := resolveFileName(uri)
	if !ok || sanitize.BaseName(resolvedFileName) == constants.TmpImageFileName {
		resolvedName = constants.DefaultSpriteName
		lookFileName = resolvedName + constants.DefaultImageExtension
	} else {
		resolvedName = sanitize.BaseName(resolvedFileName)
		lookFileName = sanitize.FileName(resolvedFileName)
	}

	name, err := c.promptName(ctx, NameRequest{
		Title:   "New sprite",
		Hint:    "Sprite name",
		Default: paths.UniqueName(resolvedName, scene.SpriteNames()),
		Taken:   scene.SpriteNames(),
	})
	if errors.Is(err, ErrCancelled) {
		c.clearMediaLibraryCache()
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	sprite := models.NewSprite(name)
	if err := scene.AddSprite(sprite); err != nil {
		return nil, err
	}

	var look *models.LookData
	dest, err := copyURIToDir(uri, scene.ImageDirectory(), lookFileName)
	if err != nil {
		c.logger.Error().Err(err).Str("uri", uri).Str("sprite", name).Msg("Failed to copy look image")
	} else {
		look = &models.LookData{Name: name, FileName: filepath.Base(dest)}
		sprite.AddLook(look)
	}

	if err := c.manager.Save(); err != nil {
		return nil, err
	}

	c.logger.Info().Str("scene", scene.Name).Str("sprite", name).Int("looks", len(sprite.Looks)).Msg("Added sprite")
	c.publishChange(p.Name, scene.Name, ActionSpriteAdded, name)
	if look != nil {
		c.publishChange(p.Name, scene.Name, ActionLookAdded, look.FileName)
	}
	return sprite, nil
}

func (c *Controller) clearMediaLibraryCache() {
	dir := c.MediaLibraryCacheDir()
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		c.logger.Error().Err(err).Str("dir", dir).Msg("Failed to clear media library cache")
	}
}

// Play starts the stage. The default scene starts right away; any other
// edited scene asks which scene to start with first.
func (c *Controller) Play(ctx context.Context) error {
	p := c.manager.CurrentProject()
	if p == nil {
		return ErrNoProject
	}
	edited := c.manager.EditedScene()
	def := p.DefaultScene()
	if edited == nil || def == nil {
		return ErrNoScene
	}

	start := def
	if edited.Name != def.Name {
		choice, err := c.prompter.ConfirmPlay(ctx, edited.Name, def.Name)
		if err != nil {
			return err
		}
		switch choice {
		case PlayCurrentScene:
			start = edited
		case PlayDefaultScene:
			start = def
		default:
			return ErrCancelled
		}
	}

	c.manager.SetPlayingScene(start)
	c.manager.SetStartScene(start)

	c.logger.Info().Str("project", p.Name).Str("scene", start.Name).Msg("Starting stage")
	if c.bus != nil {
		c.bus.PublishStageStart(p.Name, start.Name)
	}
	if c.stage == nil {
		return nil
	}
	return c.stage.Start(ctx, p, start)
}

// sensorInfoRobots are the robots with a sensor configuration notice, in
// the order the notices are shown.
var sensorInfoRobots = []models.Resource{models.ResourceLegoNXT, models.ResourceLegoEV3}

// ShowSensorConfigInfo reminds the user to check the sensor configuration
// of every LEGO robot the opened project's bricks drive, unless the notice
// for that robot is turned off. It returns the robots it reported.
func (c *Controller) ShowSensorConfigInfo(ctx context.Context) ([]models.Resource, error) {
	p := c.manager.CurrentProject()
	if p == nil {
		return nil, nil
	}

	required := p.RequiredResources()
	notifier, _ := c.prompter.(SensorInfoNotifier)

	var shown []models.Resource
	for _, robot := range sensorInfoRobots {
		if !required.Contains(robot) || c.hiddenSensorInfo[robot] {
			continue
		}
		c.logger.Info().Str("project", p.Name).Str("robot", string(robot)).
			Msg("Project uses robot bricks, check the sensor configuration")
		if notifier != nil {
			if err := notifier.ShowSensorInfo(ctx, robot); err != nil {
				return shown, err
			}
		}
		shown = append(shown, robot)
	}
	return shown, nil
}

// Back handles the back action. From the sprite list of a project with
// several scenes it returns to the scene list and reports false; otherwise
// it reports true, meaning the caller should leave the project.
func (c *Controller) Back() bool {
	p := c.manager.CurrentProject()
	multiScene := p != nil && len(p.Scenes) > 1

	if c.View() == ViewSprites && multiScene {
		c.ShowScenes()
		return false
	}
	return true
}

func (c *Controller) promptName(ctx context.Context, req NameRequest) (string, error) {
	name, ok, err := c.prompter.PromptName(ctx, req)
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	if !ok {
		return "", ErrCancelled
	}
	name = sanitize.SanitizeName(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func (c *Controller) publishChange(projectName, sceneName, action, item string) {
	if c.bus != nil {
		c.bus.PublishProjectChange(projectName, sceneName, action, item)
	}
}
