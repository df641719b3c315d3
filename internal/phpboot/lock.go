package phpboot

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rogpeppe/go-internal/lockedfile"
)

// lockfile is the path of the lock guarding root. It sits next to root so that
// taking the lock doesn't create root.
func lockfile(root string) string {
	root = filepath.Clean(root)
	return filepath.Join(filepath.Dir(root), "."+filepath.Base(root)+".lock")
}

// lockRoot takes an exclusive lock on root, blocking until it is available.
func lockRoot(root string) (io.Closer, error) {
	lf := lockfile(root)
	err := os.MkdirAll(filepath.Dir(lf), 0o755)
	if err != nil {
		return nil, err
	}
	return lockedfile.OpenFile(lf, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}
