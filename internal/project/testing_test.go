package project

import (
	"context"
	"testing"

	"github.com/catrobat/catroid-share/internal/models"
)

// fakePrompter records requests and answers with scripted values.
type fakePrompter struct {
	names     []string // answers; "" cancels
	requests  []NameRequest
	play      PlayChoice
	playCalls int
}

func (f *fakePrompter) PromptName(_ context.Context, req NameRequest) (string, bool, error) {
	f.requests = append(f.requests, req)
	if len(f.names) == 0 {
		return req.Default, true, nil
	}
	answer := f.names[0]
	f.names = f.names[1:]
	if answer == "" {
		return "", false, nil
	}
	return answer, true, nil
}

func (f *fakePrompter) ConfirmPlay(context.Context, string, string) (PlayChoice, error) {
	f.playCalls++
	return f.play, nil
}

type fakeStage struct {
	started []string
}

func (s *fakeStage) Start(_ context.Context, _ *models.Project, scene *models.Scene) error {
	s.started = append(s.started, scene.Name)
	return nil
}

func newTestController(t *testing.T, opts ...ControllerOption) (*Controller, *Manager, *fakePrompter, *fakeStage) {
	t.Helper()
	m := NewManager(t.TempDir(), nil)
	if _, err := m.NewProject("Pong"); err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}
	prompter := &fakePrompter{}
	stage := &fakeStage{}
	opts = append([]ControllerOption{WithCacheDir(t.TempDir())}, opts...)
	return NewController(m, prompter, stage, opts...), m, prompter, stage
}
