package media

import (
	"context"
	"os/exec"
)

// commandRunner abstracts process execution so probing and exporting can be
// exercised in tests without ffmpeg installed.
type commandRunner interface {
	// Output runs the command and returns stdout. Stderr is captured into
	// the returned error via exec.ExitError when the command fails.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// CombinedOutput runs the command and returns stdout+stderr interleaved.
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

type osCommandRunner struct{}

func (osCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
