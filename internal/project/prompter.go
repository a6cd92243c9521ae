package project

import (
	"context"
	"errors"

	"github.com/catrobat/catroid-share/internal/models"
)

// ErrCancelled is returned when the user dismissed a prompt.
var ErrCancelled = errors.New("cancelled by user")

// NameRequest asks the user for the name of a new scene or sprite.
type NameRequest struct {
	Title   string
	Hint    string
	Default string
	// Taken lists names already used in the target collection.
	Taken []string
}

// PlayChoice is the answer to a play confirmation.
type PlayChoice int

const (
	// PlayCancel leaves the stage stopped.
	PlayCancel PlayChoice = iota
	// PlayCurrentScene starts the stage with the edited scene.
	PlayCurrentScene
	// PlayDefaultScene starts the stage with the project's default scene.
	PlayDefaultScene
)

// Prompter asks the user for input. PromptName returns ok=false when the
// user cancelled.
type Prompter interface {
	PromptName(ctx context.Context, req NameRequest) (name string, ok bool, err error)
	ConfirmPlay(ctx context.Context, editedScene, defaultScene string) (PlayChoice, error)
}

// SensorInfoNotifier is implemented by prompters that can show the notice
// asking the user to check a LEGO robot's sensor configuration.
type SensorInfoNotifier interface {
	ShowSensorInfo(ctx context.Context, robot models.Resource) error
}

// Stage runs a scene.
type Stage interface {
	Start(ctx context.Context, p *models.Project, scene *models.Scene) error
}

// StaticPrompter answers every prompt without asking: names are accepted as
// suggested and plays use the configured choice. Used for non-interactive
// runs.
type StaticPrompter struct {
	Play PlayChoice
}

// PromptName accepts the suggested name.
func (s StaticPrompter) PromptName(_ context.Context, req NameRequest) (string, bool, error) {
	return req.Default, true, nil
}

// ConfirmPlay returns the configured choice.
func (s StaticPrompter) ConfirmPlay(context.Context, string, string) (PlayChoice, error) {
	return s.Play, nil
}
