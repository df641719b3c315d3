package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

type cmdRunner struct {
	t           testing.TB
	configFile  string
	installRoot string
	tmpDir      string
}

func newCmdRunner(t testing.TB) *cmdRunner {
	t.Helper()
	dir := t.TempDir()
	return &cmdRunner{
		t:           t,
		installRoot: filepath.Join(dir, "php"),
		tmpDir:      dir,
	}
}

func (c *cmdRunner) run(commandLine ...string) *runCmdResult {
	ctx := context.Background()
	c.t.Helper()
	result := runCmdResult{t: c.t}
	if c.configFile != "" {
		commandLine = append(commandLine, "--configfile", c.configFile)
	}
	if c.installRoot != "" {
		commandLine = append(commandLine, "--install-root", c.installRoot)
	}
	Run(
		ctx,
		commandLine,
		&runOpts{
			stdout:  &result.stdOut,
			stderr:  &result.stdErr,
			cmdName: "cmd",
			exitHandler: func(i int) {
				result.exited = true
				result.exitVal = i
			},
		},
	)
	return &result
}

func (c *cmdRunner) writeConfigYaml(content string) {
	c.t.Helper()
	c.configFile = filepath.Join(c.tmpDir, "phpboot.yaml")
	err := os.WriteFile(c.configFile, []byte(content), 0o600)
	assert.NoError(c.t, err)
}

// exe is the unix layout executable under the install root.
func (c *cmdRunner) exe() string {
	return filepath.Join(c.installRoot, "bin", "php7", "bin", "php")
}

type runCmdResult struct {
	t       testing.TB
	stdOut  bytes.Buffer
	stdErr  bytes.Buffer
	exited  bool
	exitVal int
}

func (r *runCmdResult) assertStdOut(want string) {
	r.t.Helper()
	assertEqualOrMatch(r.t, want, r.stdOut.String())
}

func (r *runCmdResult) assertStdErr(want string) {
	r.t.Helper()
	assertEqualOrMatch(r.t, want, r.stdErr.String())
}

type resultState struct {
	stdout string
	stderr string
	exit   int
}

func (r *runCmdResult) assertState(state resultState) {
	r.t.Helper()
	r.assertStdOut(state.stdout)
	r.assertStdErr(state.stderr)
	assert.Equal(r.t, state.exit, r.exitVal)
	assert.Equal(r.t, state.exit != 0, r.exited)
}

func assertEqualOrMatch(t testing.TB, want, got string) {
	t.Helper()
	if want == "" {
		assert.Equal(t, "", got)
		return
	}
	want = strings.TrimSpace(want)
	got = strings.TrimSpace(got)
	if want == got {
		return
	}
	re, err := regexp.Compile(want)
	if err != nil {
		assert.Equal(t, strings.TrimSpace(want), got)
		return
	}
	assert.Regexp(t, re, got)
}
