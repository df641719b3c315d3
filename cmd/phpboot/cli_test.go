package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmsm/phpboot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// releaseServer serves stable channel metadata for 7.4.1 and a linux archive
// containing a php stub.
func releaseServer(t *testing.T) *testutil.Server {
	t.Helper()
	archive := testutil.TarGz(t, testutil.PHPStub("PHP 7.4.1 (cli) (built: Dec 18 2019)"))
	routes := map[string]http.HandlerFunc{
		"/api":                 testutil.WithQuery("channel=stable", testutil.ServeJSON(`{"php_version":"7.4.1"}`)),
		"/dl/PHP-7.4.1.tar.gz": testutil.ServeBytes(archive),
	}
	start := testutil.RedirectChain(routes, "/hop", "/dl/PHP-7.4.1.tar.gz", 2)
	routes["/artifact/PHP-7.4.1-Linux-x86_64.tar.gz"] = func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, start, http.StatusFound)
	}
	return testutil.NewServer(t, routes)
}

func (c *cmdRunner) useServer(srv *testutil.Server) {
	c.t.Helper()
	c.writeConfigYaml(fmt.Sprintf(`
metadata_url: %s/api
artifact_url: "%s/artifact/{{.filename}}"
`, srv.URL, srv.URL))
}

func Test_ensureCmd(t *testing.T) {
	t.Run("downloads then reuses", func(t *testing.T) {
		testutil.SkipWindows(t)
		runner := newCmdRunner(t)
		srv := releaseServer(t)
		runner.useServer(srv)

		result := runner.run("ensure", "--platform", "linux")
		result.assertState(resultState{})
		require.Equal(t, fmt.Sprintf(`Downloading PHP...
Extracting PHP...
Installed PHP 7.4 at %s
%s
`, runner.exe(), runner.exe()), result.stdOut.String())
		requests := srv.Requests()

		result = runner.run("ensure", "--platform", "linux")
		require.Equal(t, fmt.Sprintf("Found PHP at %s...\n%s\n", runner.exe(), runner.exe()), result.stdOut.String())
		require.Empty(t, result.stdErr.String())
		require.Equal(t, requests, srv.Requests())
	})

	t.Run("min-version forces update", func(t *testing.T) {
		testutil.SkipWindows(t)
		runner := newCmdRunner(t)
		srv := releaseServer(t)
		runner.useServer(srv)
		testutil.WriteFile(t, runner.exe(), []byte("#!/bin/sh\necho 'PHP 7.2.0 (cli)'\n"), 0o755)

		result := runner.run("ensure", "--platform", "linux", "--min-version", "7.3")
		result.assertState(resultState{})
		lines := strings.Split(strings.TrimSpace(result.stdOut.String()), "\n")
		require.Equal(t, []string{
			fmt.Sprintf("Found PHP at %s...", runner.exe()),
			"Updating PHP to 7.3...",
			"Extracting PHP...",
			fmt.Sprintf("Installed PHP 7.4 at %s", runner.exe()),
			runner.exe(),
		}, lines)
	})

	t.Run("unsupported platform", func(t *testing.T) {
		runner := newCmdRunner(t)
		result := runner.run("ensure", "--platform", "win32")
		result.assertState(resultState{
			stdout: "Could not download PHP: No prebuilt PHP download available",
			stderr: `cmd: error: no prebuilt PHP download available for "win32"`,
			exit:   1,
		})
		assert.NoDirExists(t, runner.installRoot)
	})

	t.Run("platform from env", func(t *testing.T) {
		t.Setenv("PHPBOOT_PLATFORM", "win32")
		runner := newCmdRunner(t)
		result := runner.run("ensure")
		result.assertState(resultState{
			stdout: "Could not download PHP: No prebuilt PHP download available",
			stderr: `cmd: error: no prebuilt PHP download available for "win32"`,
			exit:   1,
		})
	})

	t.Run("quiet", func(t *testing.T) {
		runner := newCmdRunner(t)
		result := runner.run("ensure", "--platform", "win32", "-q")
		result.assertState(resultState{
			stderr: `cmd: error: no prebuilt PHP download available for "win32"`,
			exit:   1,
		})
	})

	t.Run("metadata unavailable", func(t *testing.T) {
		runner := newCmdRunner(t)
		srv := testutil.NewServer(t, map[string]http.HandlerFunc{})
		runner.useServer(srv)
		result := runner.run("ensure", "--platform", "darwin")
		result.assertState(resultState{
			stdout: `(?s)^Downloading PHP\.\.\.\nCould not download PHP: request to .+/api\?channel=stable failed: unexpected status 404 Not Found$`,
			stderr: `cmd: error: request to .+/api\?channel=stable failed: unexpected status 404 Not Found`,
			exit:   1,
		})
	})

	t.Run("invalid min-version", func(t *testing.T) {
		runner := newCmdRunner(t)
		result := runner.run("ensure", "--min-version", "soon")
		result.assertState(resultState{
			stderr: `cmd: error: invalid min_version "soon": .+`,
			exit:   1,
		})
	})
}

func Test_probeCmd(t *testing.T) {
	t.Run("installed", func(t *testing.T) {
		testutil.SkipWindows(t)
		runner := newCmdRunner(t)
		testutil.WriteFile(t, runner.exe(), []byte("#!/bin/sh\necho 'PHP 7.3.0 (cli)'\n"), 0o755)
		result := runner.run("probe", "--platform", "linux")
		result.assertState(resultState{
			stdout: runner.exe() + " 7.3",
		})
	})

	t.Run("not installed", func(t *testing.T) {
		runner := newCmdRunner(t)
		result := runner.run("probe", "--platform", "linux")
		result.assertState(resultState{
			stderr: "cmd: error: no php found in " + runner.installRoot,
			exit:   1,
		})
	})
}

func Test_latestCmd(t *testing.T) {
	runner := newCmdRunner(t)
	srv := releaseServer(t)
	runner.useServer(srv)
	result := runner.run("latest")
	result.assertState(resultState{
		stdout: "7.4.1",
	})
	require.Equal(t, 1, srv.Requests())
}

func Test_platformCmd(t *testing.T) {
	for platform, want := range map[string]string{
		"linux":  "Linux-x86_64",
		"darwin": "MacOS-x86_64",
	} {
		t.Run(platform, func(t *testing.T) {
			result := newCmdRunner(t).run("platform", platform)
			result.assertState(resultState{stdout: want})
		})
	}

	t.Run("win32", func(t *testing.T) {
		result := newCmdRunner(t).run("platform", "win32")
		result.assertState(resultState{
			stderr: `cmd: error: no prebuilt PHP download available for "win32"`,
			exit:   1,
		})
	})
}

func Test_downloadCmd(t *testing.T) {
	t.Run("explicit version", func(t *testing.T) {
		runner := newCmdRunner(t)
		srv := releaseServer(t)
		runner.useServer(srv)
		output := filepath.Join(runner.tmpDir, "out", "php.tar.gz")
		result := runner.run("download", "7.4.1", "--platform", "linux", "--output", output)
		result.assertState(resultState{
			stdout: fmt.Sprintf("downloaded %s/artifact/PHP-7.4.1-Linux-x86_64.tar.gz to %s", srv.URL, output),
		})
		got, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Equal(t, testutil.TarGz(t, testutil.PHPStub("PHP 7.4.1 (cli) (built: Dec 18 2019)")), got)
		// artifact, two hops and the file
		require.Equal(t, 4, srv.Requests())
	})

	t.Run("latest version", func(t *testing.T) {
		runner := newCmdRunner(t)
		srv := releaseServer(t)
		runner.useServer(srv)
		output := filepath.Join(runner.tmpDir, "php.tar.gz")
		result := runner.run("download", "--platform", "linux", "--output", output)
		require.Equal(t, 0, result.exitVal)
		require.FileExists(t, output)
		require.Equal(t, 5, srv.Requests())
	})

	t.Run("missing artifact", func(t *testing.T) {
		runner := newCmdRunner(t)
		srv := releaseServer(t)
		runner.useServer(srv)
		output := filepath.Join(runner.tmpDir, "php.tar.gz")
		result := runner.run("download", "7.4.2", "--platform", "linux", "--output", output)
		result.assertState(resultState{
			stderr: `cmd: error: request to .+/artifact/PHP-7\.4\.2-Linux-x86_64\.tar\.gz failed: unexpected status 404 Not Found`,
			exit:   1,
		})
		require.NoFileExists(t, output)
	})
}

func Test_extractCmd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		testutil.SkipWindows(t)
		runner := newCmdRunner(t)
		archive := filepath.Join(runner.tmpDir, "PHP-7.4.1-Linux-x86_64.tar.gz")
		testutil.WriteFile(t, archive, testutil.TarGz(t, testutil.PHPStub("PHP 7.4.1 (cli)")), 0o644)
		result := runner.run("extract", archive, "--platform", "linux")
		result.assertState(resultState{
			stdout: runner.exe() + " 7.4",
		})
		require.NoFileExists(t, archive)
	})

	t.Run("corrupt archive", func(t *testing.T) {
		runner := newCmdRunner(t)
		archive := filepath.Join(runner.tmpDir, "PHP-7.4.1-Linux-x86_64.tar.gz")
		testutil.WriteFile(t, archive, []byte("nope"), 0o644)
		result := runner.run("extract", archive, "--platform", "linux")
		result.assertState(resultState{
			stderr: `cmd: error: extracting .+PHP-7\.4\.1-Linux-x86_64\.tar\.gz: .+`,
			exit:   1,
		})
	})
}

func Test_schemaCmd(t *testing.T) {
	result := newCmdRunner(t).run("schema")
	require.Equal(t, 0, result.exitVal)
	require.Contains(t, result.stdOut.String(), `"$id": "https://pmsm.github.io/phpboot/phpboot.schema.json"`)
	require.Contains(t, result.stdOut.String(), `"min_version"`)
}

func Test_config(t *testing.T) {
	t.Run("invalid config file", func(t *testing.T) {
		runner := newCmdRunner(t)
		runner.writeConfigYaml("max_redirects: ten\n")
		result := runner.run("latest")
		result.assertState(resultState{
			stderr: `(?s)cmd: error: invalid config:\n.*max_redirects`,
			exit:   1,
		})
	})

	t.Run("install_root relative to config file", func(t *testing.T) {
		testutil.SkipWindows(t)
		runner := newCmdRunner(t)
		runner.installRoot = ""
		runner.writeConfigYaml("install_root: runtime\nplatform: linux\n")
		exe := filepath.Join(runner.tmpDir, "runtime", "bin", "php7", "bin", "php")
		testutil.WriteFile(t, exe, []byte("#!/bin/sh\necho 'PHP 8.1.2 (cli)'\n"), 0o755)
		result := runner.run("probe")
		result.assertState(resultState{
			stdout: exe + " 8.1",
		})
	})
}
