package main

import (
	"fmt"
	"path/filepath"

	"github.com/pmsm/phpboot/internal/phpboot"
)

type latestCmd struct{}

func (c *latestCmd) Run(ctx *runContext) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(ctx, cfg, nil)
	if err != nil {
		return err
	}
	version, err := orchestrator.ReleaseLocator().LatestStableVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.stdout, version)
	return nil
}

type platformCmd struct {
	Platform string `kong:"arg,optional,default=${platform_default},help='platform id',predictor=platform"`
}

func (c *platformCmd) Run(ctx *runContext) error {
	tag, err := phpboot.ArtifactPlatform(c.Platform)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.stdout, tag)
	return nil
}

type downloadCmd struct {
	Version string `kong:"arg,optional,help='php version such as 7.4.1. default is the latest on the release channel'"`
	Output  string `kong:"type=path,help=${output_help}"`
}

func (c *downloadCmd) Run(ctx *runContext) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(ctx, cfg, nil)
	if err != nil {
		return err
	}
	platform, err := phpboot.ArtifactPlatform(orchestrator.Config().Platform)
	if err != nil {
		return err
	}
	locator := orchestrator.ReleaseLocator()
	version := c.Version
	if version == "" {
		version, err = locator.LatestStableVersion(ctx)
		if err != nil {
			return err
		}
	}
	release, err := locator.ResolveRelease(version, platform)
	if err != nil {
		return err
	}
	output := c.Output
	if output == "" {
		output = filepath.FromSlash(release.Filename)
	}
	err = orchestrator.Downloader().Download(ctx, release.URL, output)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.stdout, "downloaded %s to %s\n", release.URL, output)
	return nil
}
