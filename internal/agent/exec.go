package agent

import (
	"context"
	"errors"
	"os/exec"
)

// Command maps a short name to a literal argument vector. Callers choose a
// name; they never contribute arguments.
type Command struct {
	Name string
	Argv []string
}

type Runner func(ctx context.Context, argv []string) ([]byte, error)

func DefaultCommands() []Command {
	return []Command{
		{Name: "ls", Argv: []string{"ls", "-1"}},
		{Name: "whoami", Argv: []string{"whoami"}},
		{Name: "uptime", Argv: []string{"uptime"}},
		{Name: "date", Argv: []string{"date"}},
		{Name: "cat_os", Argv: []string{"cat", "/etc/os-release"}},
	}
}

func execRunner(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty argv")
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
}
