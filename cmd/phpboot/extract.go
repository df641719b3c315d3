package main

import "fmt"

type extractCmd struct {
	Archive string `kong:"arg,type=existingfile,help='tar.gz archive to install'"`
}

func (c *extractCmd) Run(ctx *runContext) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(ctx, cfg, nil)
	if err != nil {
		return err
	}
	cfg = orchestrator.Config()
	inst, err := orchestrator.Installer().Install(ctx, c.Archive, cfg.InstallRoot, cfg.Platform)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.stdout, "%s %s\n", inst.Executable, inst.Version)
	return nil
}
