package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/catrobat/catroid-share/internal/models"
	"github.com/catrobat/catroid-share/internal/project"
)

// terminalPrompter asks for names and play choices on a line-based terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

// PromptName shows the suggested name; an empty answer accepts it and a
// single "-" cancels.
func (p *terminalPrompter) PromptName(_ context.Context, req project.NameRequest) (string, bool, error) {
	fmt.Fprintf(p.out, "%s [%s] (- to cancel): ", req.Title, req.Default)
	input, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}

	input = strings.TrimSpace(input)
	switch input {
	case "-":
		return "", false, nil
	case "":
		return req.Default, true, nil
	}
	return input, true, nil
}

// ConfirmPlay asks which scene to start with.
func (p *terminalPrompter) ConfirmPlay(ctx context.Context, editedScene, defaultScene string) (project.PlayChoice, error) {
	fmt.Fprintf(p.out, "\nScene '%s' is not the start scene.\n", editedScene)
	fmt.Fprintln(p.out, "What would you like to do?")
	fmt.Fprintf(p.out, "  1. Play '%s'\n", editedScene)
	fmt.Fprintf(p.out, "  2. Play '%s'\n", defaultScene)
	fmt.Fprintln(p.out, "  3. Cancel")
	fmt.Fprint(p.out, "Choose [1-3]: ")

	input, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return project.PlayCancel, err
	}

	switch strings.TrimSpace(input) {
	case "1":
		return project.PlayCurrentScene, nil
	case "2":
		return project.PlayDefaultScene, nil
	case "3":
		return project.PlayCancel, nil
	default:
		if err == io.EOF {
			return project.PlayCancel, nil
		}
		fmt.Fprintln(p.out, "Invalid choice, please try again.")
		return p.ConfirmPlay(ctx, editedScene, defaultScene)
	}
}

// ShowSensorInfo reminds the user to set up the robot's sensors before
// playing.
func (p *terminalPrompter) ShowSensorInfo(_ context.Context, robot models.Resource) error {
	name := "NXT"
	if robot == models.ResourceLegoEV3 {
		name = "EV3"
	}
	fmt.Fprintf(p.out, "\nThis project uses LEGO Mindstorms %s bricks.\n", name)
	fmt.Fprintf(p.out, "Check that the sensors on the robot match the %s sensor ports in the settings.\n", name)
	fmt.Fprintf(p.out, "Set hide_%s_sensor_info to true in the config to stop this notice.\n", strings.ToLower(name))
	return nil
}

// consoleStage prints the scene that would be run.
type consoleStage struct {
	out io.Writer
}

func (s consoleStage) Start(_ context.Context, p *models.Project, scene *models.Scene) error {
	fmt.Fprintf(s.out, "▶ %s / %s\n", p.Name, scene.Name)
	for _, sprite := range scene.Sprites {
		fmt.Fprintf(s.out, "  %s (%d looks, %d bricks)\n", sprite.Name, len(sprite.Looks), len(sprite.Bricks))
		for _, look := range sprite.Looks {
			fmt.Fprintf(s.out, "    look %s\n", scene.LookPath(look))
		}
		for _, brick := range sprite.Bricks {
			if inputs := brick.Inputs(); len(inputs) > 0 {
				fmt.Fprintf(s.out, "    %s(%s)\n", brick.Kind, strings.Join(inputs, ", "))
			}
		}
	}
	return nil
}
