package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// Entry is a file, directory, symlink or hard link in a test archive.
type Entry struct {
	Name     string
	Body     string
	Mode     int64
	Dir      bool
	Link     string
	HardLink string
}

// PHPStub is an executable at the unix layout's php path that prints a php -v banner.
func PHPStub(banner string) Entry {
	return Entry{
		Name: "bin/php7/bin/php",
		Body: fmt.Sprintf("#!/bin/sh\necho %q\n", banner),
		Mode: 0o755,
	}
}

// TarGz returns a gzipped tarball of entries.
func TarGz(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{
			Name: e.Name,
			Mode: e.Mode,
		}
		switch {
		case e.Dir:
			hdr.Typeflag = tar.TypeDir
			if hdr.Mode == 0 {
				hdr.Mode = 0o755
			}
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			hdr.Mode = 0o777
		case e.HardLink != "":
			hdr.Typeflag = tar.TypeLink
			hdr.Linkname = e.HardLink
			if hdr.Mode == 0 {
				hdr.Mode = 0o755
			}
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
			if hdr.Mode == 0 {
				hdr.Mode = 0o644
			}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, mode))
}

// SkipWindows skips tests that need to run shell script stubs.
func SkipWindows(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stubs don't run on windows")
	}
}

// Server is an httptest server that counts requests.
type Server struct {
	*httptest.Server
	requests atomic.Int64
}

// Requests returns how many requests the server has handled.
func (s *Server) Requests() int {
	return int(s.requests.Load())
}

// NewServer starts a counting server for the given routes.
func NewServer(t testing.TB, routes map[string]http.HandlerFunc) *Server {
	t.Helper()
	srv := &Server{}
	mux := http.NewServeMux()
	for path, handler := range routes {
		mux.HandleFunc(path, handler)
	}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		srv.requests.Add(1)
		mux.ServeHTTP(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ServeBytes responds with content.
func ServeBytes(content []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		//nolint:errcheck // test server
		w.Write(content)
	}
}

// ServeJSON responds with a json body.
func ServeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // test server
		w.Write([]byte(body))
	}
}

// RedirectChain registers n redirects ending at target. Paths are prefix/1 .. prefix/n
// and the returned path is the start of the chain.
func RedirectChain(routes map[string]http.HandlerFunc, prefix, target string, n int) string {
	for i := 1; i <= n; i++ {
		next := fmt.Sprintf("%s/%d", prefix, i+1)
		if i == n {
			next = target
		}
		routes[fmt.Sprintf("%s/%d", prefix, i)] = func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, next, http.StatusFound)
		}
	}
	return prefix + "/1"
}

// WithQuery responds 404 unless the request's raw query is query.
func WithQuery(query string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.URL.RawQuery != query {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		handler(w, req)
	}
}
