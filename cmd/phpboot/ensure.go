package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmsm/phpboot/internal/phpboot"
)

var (
	failureColor = color.New(color.FgRed)
	readyColor   = color.New(color.FgGreen)
)

func newOrchestrator(ctx *runContext, cfg *phpboot.Config, sink phpboot.Sink) (*phpboot.Orchestrator, error) {
	return phpboot.NewOrchestrator(cfg, &phpboot.OrchestratorOpts{
		Sink:   sink,
		Logger: ctx.logger,
	})
}

// statusSink prints each status on its own line. Failures are red.
func statusSink(w io.Writer) phpboot.Sink {
	return phpboot.SinkFunc(func(status string) {
		if strings.HasPrefix(status, "Could not") {
			status = failureColor.Sprint(status)
		}
		fmt.Fprintln(w, status)
	})
}

type ensureCmd struct {
	MinVersion string `kong:"name=min-version,help=${min_version_help},env='PHPBOOT_MIN_VERSION'"`
}

func (c *ensureCmd) Run(ctx *runContext) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if c.MinVersion != "" {
		cfg.MinVersion = c.MinVersion
	}
	orchestrator, err := newOrchestrator(ctx, cfg, statusSink(ctx.stdout))
	if err != nil {
		return err
	}
	result, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.stdout, readyColor.Sprint(result.Installation.Executable))
	return nil
}

type probeCmd struct{}

func (c *probeCmd) Run(ctx *runContext) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(ctx, cfg, nil)
	if err != nil {
		return err
	}
	cfg = orchestrator.Config()
	inst, err := orchestrator.Prober().Probe(ctx, cfg.InstallRoot, cfg.Platform)
	if errors.Is(err, phpboot.ErrNotFound) {
		return fmt.Errorf("no php found in %s", cfg.InstallRoot)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.stdout, "%s %s\n", inst.Executable, inst.Version)
	return nil
}
