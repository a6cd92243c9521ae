// Package models defines the project data model: projects own scenes,
// scenes own sprites, sprites own looks and bricks.
package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/util/sanitize"
)

// ErrNameTaken is returned when adding an item whose name already exists in
// its containing collection.
var ErrNameTaken = errors.New("name already taken")

// ErrInvalidName is returned for a scene name that is empty once cleaned.
var ErrInvalidName = errors.New("invalid name")

// Project is the root of the model. The first scene is the default scene.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Scenes      []*Scene `json:"scenes"`

	// Directory is the project's directory on disk; it is not serialized.
	Directory string `json:"-"`
}

// Scene is a named stage container owning sprites.
type Scene struct {
	Name    string    `json:"name"`
	Sprites []*Sprite `json:"sprites"`

	// Directory holds the scene's media assets; it is not serialized.
	Directory string `json:"-"`
}

// Sprite is a programmable visual object with looks and bricks.
type Sprite struct {
	Name   string      `json:"name"`
	Looks  []*LookData `json:"looks"`
	Bricks []*Brick    `json:"bricks,omitempty"`
}

// LookData is an image asset bound to a sprite. FileName is relative to the
// scene's image directory.
type LookData struct {
	Name     string `json:"name"`
	FileName string `json:"fileName"`
}

// NewProject creates an empty project rooted at dir.
func NewProject(name, dir string) *Project {
	return &Project{Name: name, Directory: dir}
}

// DefaultScene returns the first scene, or nil for an empty project.
func (p *Project) DefaultScene() *Scene {
	if len(p.Scenes) == 0 {
		return nil
	}
	return p.Scenes[0]
}

// Scene returns the scene with the given name, or nil.
func (p *Project) Scene(name string) *Scene {
	for _, s := range p.Scenes {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SceneNames returns the scene names in order.
func (p *Project) SceneNames() []string {
	names := make([]string, len(p.Scenes))
	for i, s := range p.Scenes {
		names[i] = s.Name
	}
	return names
}

// AddScene appends s and places its directory inside the project directory.
func (p *Project) AddScene(s *Scene) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scene %q: %w", s.Name, ErrInvalidName)
	}
	if p.Scene(s.Name) != nil {
		return fmt.Errorf("scene %q: %w", s.Name, ErrNameTaken)
	}
	s.Directory = SceneDirectory(p.Directory, s.Name)
	p.Scenes = append(p.Scenes, s)
	return nil
}

// AttachDirectories recomputes scene directories after p was decoded or
// moved to dir.
func (p *Project) AttachDirectories(dir string) {
	p.Directory = dir
	for _, s := range p.Scenes {
		s.Directory = SceneDirectory(dir, s.Name)
	}
}

// SceneDirectory returns the directory of the scene called name inside
// projectDir. The name is reduced to a single path element, so the result
// is always a direct child of projectDir.
func SceneDirectory(projectDir, name string) string {
	elem := sanitize.FileName(name)
	if elem == "" {
		elem = "_"
	}
	return filepath.Join(projectDir, elem)
}

// NewScene creates an empty scene. Its directory is assigned when it is
// added to a project.
func NewScene(name string) *Scene {
	return &Scene{Name: name}
}

// ImageDirectory returns the directory look images of this scene live in.
func (s *Scene) ImageDirectory() string {
	return filepath.Join(s.Directory, constants.ImageDirectoryName)
}

// LookPath returns the absolute path of a look's image file.
func (s *Scene) LookPath(look *LookData) string {
	return filepath.Join(s.ImageDirectory(), sanitize.FileName(look.FileName))
}

// Sprite returns the sprite with the given name, or nil.
func (s *Scene) Sprite(name string) *Sprite {
	for _, sp := range s.Sprites {
		if sp.Name == name {
			return sp
		}
	}
	return nil
}

// SpriteNames returns the sprite names in order.
func (s *Scene) SpriteNames() []string {
	names := make([]string, len(s.Sprites))
	for i, sp := range s.Sprites {
		names[i] = sp.Name
	}
	return names
}

// AddSprite appends sp to the scene.
func (s *Scene) AddSprite(sp *Sprite) error {
	if s.Sprite(sp.Name) != nil {
		return fmt.Errorf("sprite %q: %w", sp.Name, ErrNameTaken)
	}
	s.Sprites = append(s.Sprites, sp)
	return nil
}

// NewSprite creates a sprite without looks or bricks.
func NewSprite(name string) *Sprite {
	return &Sprite{Name: name}
}

// AddLook appends a look to the sprite.
func (sp *Sprite) AddLook(look *LookData) {
	sp.Looks = append(sp.Looks, look)
}
