// Package project holds the currently opened project and the navigation
// controller that edits it: adding scenes, adding sprites from imported
// images, playing scenes and sharing the project.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/logging"
	"github.com/catrobat/catroid-share/internal/models"
	"github.com/catrobat/catroid-share/internal/util/archive"
	"github.com/catrobat/catroid-share/internal/util/sanitize"
)

var (
	// ErrNoProject is returned by operations that need an opened project.
	ErrNoProject = errors.New("no project opened")
	// ErrNoScene is returned when the project has no scene to edit.
	ErrNoScene = errors.New("no scene selected")
	// ErrProjectExists is returned when creating a project whose directory exists.
	ErrProjectExists = errors.New("project already exists")
	// ErrInvalidProjectName is returned for a name that does not map to a
	// directory inside the projects directory.
	ErrInvalidProjectName = errors.New("invalid project name")
)

// Manager owns the opened project and the scenes being edited and played.
type Manager struct {
	mu           sync.RWMutex
	projectsDir  string
	project      *models.Project
	editedScene  *models.Scene
	playingScene *models.Scene
	startScene   *models.Scene
	logger       *logging.Logger
}

// NewManager creates a manager for projects stored below projectsDir.
func NewManager(projectsDir string, logger *logging.Logger) *Manager {
	return &Manager{
		projectsDir: projectsDir,
		logger:      logging.OrNop(logger).Named("project"),
	}
}

// ProjectsDir returns the directory projects are stored in.
func (m *Manager) ProjectsDir() string {
	return m.projectsDir
}

// ProjectDir returns the directory of the project called name.
func (m *Manager) ProjectDir(name string) string {
	return filepath.Join(m.projectsDir, sanitize.FileName(name))
}

// projectDirFor returns the directory of the project called name and
// refuses names that would resolve to the projects directory itself or
// anywhere outside it.
func (m *Manager) projectDirFor(name string) (string, error) {
	if sanitize.FileName(sanitize.SanitizeName(name)) == "" {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidProjectName)
	}
	root, err := filepath.Abs(m.projectsDir)
	if err != nil {
		return "", err
	}
	dir, err := filepath.Abs(m.ProjectDir(name))
	if err != nil {
		return "", err
	}
	if filepath.Dir(dir) != root {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidProjectName)
	}
	return dir, nil
}

// NewProject creates, saves and opens a project with one default scene that
// holds a background sprite.
func (m *Manager) NewProject(name string) (*models.Project, error) {
	name = sanitize.SanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}

	dir, err := m.projectDirFor(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrProjectExists)
	}

	p := models.NewProject(name, dir)
	scene := models.NewScene(constants.DefaultSceneName + " 1")
	if err := p.AddScene(scene); err != nil {
		return nil, err
	}
	if err := scene.AddSprite(models.NewSprite(constants.BackgroundSpriteName)); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := saveProject(p); err != nil {
		return nil, err
	}

	m.open(p)
	m.logger.Info().Str("project", name).Str("dir", dir).Msg("Created project")
	return p, nil
}

// Load opens the project stored in dir.
func (m *Manager) Load(dir string) (*models.Project, error) {
	p, err := loadProject(dir)
	if err != nil {
		return nil, err
	}
	m.open(p)
	m.logger.Debug().Str("project", p.Name).Int("scenes", len(p.Scenes)).Msg("Loaded project")
	return p, nil
}

// LoadByName opens the project called name from the projects directory.
func (m *Manager) LoadByName(name string) (*models.Project, error) {
	return m.Load(m.ProjectDir(name))
}

func (m *Manager) open(p *models.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.project = p
	m.editedScene = p.DefaultScene()
	m.playingScene = nil
	m.startScene = nil
}

// Save writes the opened project to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	p := m.project
	m.mu.RUnlock()
	if p == nil {
		return ErrNoProject
	}
	return saveProject(p)
}

// ImportArchive unpacks a downloaded .catrobat archive into the projects
// directory and opens it. The project is stored under the name recorded
// in its code.json.
func (m *Manager) ImportArchive(archivePath string) (*models.Project, error) {
	staging, err := os.MkdirTemp(m.projectsDir, ".import-*")
	if err != nil {
		if mkErr := os.MkdirAll(m.projectsDir, 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create projects directory: %w", mkErr)
		}
		if staging, err = os.MkdirTemp(m.projectsDir, ".import-*"); err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
	}
	defer os.RemoveAll(staging)

	if err := archive.Unpack(archivePath, staging); err != nil {
		return nil, err
	}
	p, err := loadProject(staging)
	if err != nil {
		return nil, err
	}

	dir, err := m.projectDirFor(p.Name)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to replace %s: %w", dir, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return nil, fmt.Errorf("failed to move project into place: %w", err)
	}
	return m.Load(dir)
}

// ListProjects returns the names of the project directories that contain a
// code.json, sorted.
func (m *Manager) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(m.projectsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(m.projectsDir, e.Name(), constants.ProjectCodeFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CurrentProject returns the opened project, or nil.
func (m *Manager) CurrentProject() *models.Project {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.project
}

// EditedScene returns the scene currently being edited.
func (m *Manager) EditedScene() *models.Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.editedScene
}

// SetEditedScene selects the scene called name for editing.
func (m *Manager) SetEditedScene(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.project == nil {
		return ErrNoProject
	}
	s := m.project.Scene(name)
	if s == nil {
		return fmt.Errorf("scene %q not found", name)
	}
	m.editedScene = s
	return nil
}

// PlayingScene returns the scene currently running on the stage, or nil.
func (m *Manager) PlayingScene() *models.Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playingScene
}

// SetPlayingScene records the scene running on the stage.
func (m *Manager) SetPlayingScene(s *models.Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playingScene = s
}

// StartScene returns the scene the stage starts with, or nil.
func (m *Manager) StartScene() *models.Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startScene
}

// SetStartScene records the scene the stage starts with.
func (m *Manager) SetStartScene(s *models.Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startScene = s
}
