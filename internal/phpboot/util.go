package phpboot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/charmbracelet/log"
)

// executeTemplate executes a template with missingkey=error
func executeTemplate(tmplString string, vars map[string]string) (string, error) {
	tmpl, err := template.New("").Option("missingkey=error").Parse(tmplString)
	if err != nil {
		return "", fmt.Errorf("%q is not a valid template", tmplString)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, vars)
	if err != nil {
		return "", fmt.Errorf("error applying template: %v", err)
	}
	return buf.String(), nil
}

// fileExists asserts that a file exist or symlink exists.
// Returns false for symlinks pointing to non-existent files.
func fileExists(path string) bool {
	_, statErr := os.Stat(filepath.FromSlash(path))
	return !os.IsNotExist(statErr)
}

func deferErr(errOut *error, fn func() error) {
	deferredErr := fn()
	if *errOut == nil {
		*errOut = deferredErr
	}
}

// removeQuietly removes path and logs instead of returning a failure.
func removeQuietly(logger *log.Logger, path string) {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove file", "path", path, "err", err)
	}
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}
	return log.New(io.Discard)
}
