package phpboot

import (
	"context"
	"os"
	"os/exec"
	"regexp"

	"github.com/charmbracelet/log"
)

// Installation is a probed runtime install.
type Installation struct {
	Root       string
	Executable string
	Version    string
}

// Runner runs an executable and returns what it wrote.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. Only stdout is returned; stderr is
// available on the *exec.ExitError when the command fails.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	//nolint:gosec // runs the installed php
	return exec.CommandContext(ctx, name, args...).Output()
}

var versionRe = regexp.MustCompile(`^PHP (\d+\.\d+)`)

// ParseVersion returns the MAJOR.MINOR from `php -v` output.
func ParseVersion(output []byte) (string, error) {
	match := versionRe.FindSubmatch(output)
	if match == nil {
		return "", &VersionParseError{Output: string(output)}
	}
	return string(match[1]), nil
}

// Prober checks a local install and asks it for its version. Nothing is cached.
type Prober struct {
	Runner Runner
	Logger *log.Logger
}

func (p *Prober) runner() Runner {
	if p.Runner == nil {
		return ExecRunner{}
	}
	return p.Runner
}

// Probe returns the installation under root. It returns ErrNotFound when root
// or the platform's executable doesn't exist.
func (p *Prober) Probe(ctx context.Context, root, platformID string) (*Installation, error) {
	if !fileExists(root) {
		return nil, ErrNotFound
	}
	exe := ExecutablePath(root, platformID)
	info, err := os.Stat(exe)
	if err != nil || info.IsDir() {
		orDiscard(p.Logger).Debug("no php executable in install root", "root", root, "executable", exe)
		return nil, ErrNotFound
	}
	version, err := p.Version(ctx, exe)
	if err != nil {
		return nil, err
	}
	return &Installation{
		Root:       root,
		Executable: exe,
		Version:    version,
	}, nil
}

// Version runs `exe -v` and parses the result.
func (p *Prober) Version(ctx context.Context, exe string) (string, error) {
	out, err := p.runner().Output(ctx, exe, "-v")
	orDiscard(p.Logger).Debug("ran php -v", "executable", exe, "output", string(out), "err", err)
	if err != nil {
		return "", err
	}
	return ParseVersion(out)
}
