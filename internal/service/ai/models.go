package ai

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands on the host.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

var errNoModels = errors.New("no local models installed")

// ModelLister reports the models available to the local runtime via `ollama list`.
type ModelLister struct {
	bin      string
	run      CommandRunner
	fallback []string
}

// NewModelLister builds a lister for the given binary. A nil runner uses ExecRunner.
func NewModelLister(bin string, run CommandRunner, fallback []string) *ModelLister {
	if run == nil {
		run = ExecRunner
	}
	return &ModelLister{bin: bin, run: run, fallback: append([]string(nil), fallback...)}
}

// List returns the installed model identifiers. On failure it returns the
// fallback list together with the error so callers can show both.
func (l *ModelLister) List(ctx context.Context) ([]string, error) {
	out, err := l.run(ctx, l.bin, "list")
	if err != nil {
		return l.Fallback(), fmt.Errorf("error fetching models: %w", err)
	}

	models := ParseModelTable(string(out))
	if len(models) == 0 {
		return l.Fallback(), errNoModels
	}
	return models, nil
}

// Fallback returns a copy of the static model list.
func (l *ModelLister) Fallback() []string {
	return append([]string(nil), l.fallback...)
}

// ParseModelTable extracts the first column of every row after the header.
func ParseModelTable(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) <= 1 {
		return nil
	}

	models := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		models = append(models, fields[0])
	}
	return models
}
