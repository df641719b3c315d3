package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/pmsm/phpboot/internal/phpboot"
	"github.com/willabides/kongplete"
)

var kongVars = kong.Vars{
	"configfile_help":                 `file with phpboot config. default is the first one of phpboot.yml, phpboot.yaml, phpboot.json, .phpboot.yml, .phpboot.yaml or .phpboot.json`,
	"install_root_help":               `directory php is installed to. overrides install_root from the config file`,
	"platform_help":                   `platform id to install for such as linux, darwin or win32. overrides platform from the config file`,
	"ensure_help":                     `make sure php is installed, downloading it if needed`,
	"probe_help":                      `show the php installed in the install root`,
	"latest_help":                     `show the php version on the release channel`,
	"platform_cmd_help":               `show the artifact platform tag for a platform id`,
	"download_help":                   `download the php archive for a version without installing it`,
	"extract_help":                    `install a local php archive into the install root. the archive is removed afterward`,
	"schema_help":                     `print the config file json schema`,
	"min_version_help":                `minimum acceptable php version or semver constraint. overrides min_version from the config file`,
	"output_help":                     `where to write the archive. default is the archive's file name in the current directory`,
	"config_install_completions_help": `install shell completions`,
	"platform_default":                phpboot.CurrentHost.OS,
}

type rootCmd struct {
	Configfile  string `kong:"type=path,help=${configfile_help},env='PHPBOOT_CONFIG_FILE'"`
	InstallRoot string `kong:"name=install-root,type=path,help=${install_root_help},env='PHPBOOT_INSTALL_ROOT'"`
	Platform    string `kong:"help=${platform_help},env='PHPBOOT_PLATFORM',predictor=platform"`
	Quiet       bool   `kong:"short='q',help='suppress output to stdout'"`
	Debug       bool   `kong:"help='log debug output to stderr',env='PHPBOOT_DEBUG'"`

	Ensure      ensureCmd   `kong:"cmd,help=${ensure_help}"`
	Probe       probeCmd    `kong:"cmd,help=${probe_help}"`
	Latest      latestCmd   `kong:"cmd,help=${latest_help}"`
	PlatformTag platformCmd `kong:"cmd,name=platform,help=${platform_cmd_help}"`
	Download    downloadCmd `kong:"cmd,help=${download_help}"`
	Extract     extractCmd  `kong:"cmd,help=${extract_help}"`
	Schema      schemaCmd   `kong:"cmd,help=${schema_help}"`

	Version            versionCmd                   `kong:"cmd,help='show phpboot version'"`
	InstallCompletions kongplete.InstallCompletions `kong:"cmd,help=${config_install_completions_help}"`
}

var defaultConfigFilenames = []string{
	"phpboot.yml",
	"phpboot.yaml",
	"phpboot.json",
	".phpboot.yml",
	".phpboot.yaml",
	".phpboot.json",
}

// loadConfig loads the config file, if there is one, and applies flag overrides.
func loadConfig(ctx *runContext) (*phpboot.Config, error) {
	filename := ctx.rootCmd.Configfile
	if filename == "" {
		for _, configFilename := range defaultConfigFilenames {
			info, err := os.Stat(configFilename)
			if err == nil && !info.IsDir() {
				filename = configFilename
				break
			}
		}
	}
	cfg := &phpboot.Config{}
	if filename != "" {
		var err error
		cfg, err = phpboot.LoadConfigFile(ctx, filename)
		if err != nil {
			return nil, err
		}
	}
	if ctx.rootCmd.InstallRoot != "" {
		cfg.InstallRoot = ctx.rootCmd.InstallRoot
	}
	if ctx.rootCmd.Platform != "" {
		cfg.Platform = ctx.rootCmd.Platform
	}
	return cfg, nil
}

type runContext struct {
	parent  context.Context
	stdout  io.Writer
	stderr  io.Writer
	rootCmd *rootCmd
	logger  *log.Logger
}

func newRunContext(ctx context.Context) *runContext {
	return &runContext{
		parent: ctx,
	}
}

func (r *runContext) Deadline() (deadline time.Time, ok bool) {
	return r.parent.Deadline()
}

func (r *runContext) Done() <-chan struct{} {
	return r.parent.Done()
}

func (r *runContext) Err() error {
	return r.parent.Err()
}

func (r *runContext) Value(key any) any {
	return r.parent.Value(key)
}

type runOpts struct {
	stdout      io.Writer
	stderr      io.Writer
	cmdName     string
	exitHandler func(int)
}

// Run parses args and runs the selected command.
func Run(ctx context.Context, args []string, opts *runOpts) {
	if opts == nil {
		opts = &runOpts{}
	}
	var root rootCmd
	runCtx := newRunContext(ctx)
	runCtx.rootCmd = &root
	runCtx.stdout = opts.stdout
	if runCtx.stdout == nil {
		runCtx.stdout = os.Stdout
	}
	runCtx.stderr = opts.stderr
	if runCtx.stderr == nil {
		runCtx.stderr = os.Stderr
	}

	kongOptions := []kong.Option{
		kong.HelpOptions{Compact: true},
		kong.BindTo(runCtx, &runCtx),
		kongVars,
		kong.UsageOnError(),
		kong.Writers(runCtx.stdout, runCtx.stderr),
	}
	if opts.exitHandler != nil {
		kongOptions = append(kongOptions, kong.Exit(opts.exitHandler))
	}
	if opts.cmdName != "" {
		kongOptions = append(kongOptions, kong.Name(opts.cmdName))
	}

	parser := kong.Must(&root, kongOptions...)
	runCompletion(parser)

	kongCtx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)
	if err != nil {
		return
	}
	runCtx.logger = newLogger(runCtx.stderr, root.Debug)
	if root.Quiet {
		runCtx.stdout = io.Discard
		kongCtx.Stdout = io.Discard
	}
	err = kongCtx.Run()
	kongCtx.FatalIfErrorf(err)
}

func newLogger(w io.Writer, debug bool) *log.Logger {
	level := log.WarnLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "phpboot",
		Level:  level,
	})
}
