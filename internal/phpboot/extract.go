package phpboot

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mholt/archiver/v3"
	archiverv4 "github.com/mholt/archiver/v4"
)

// Installer unpacks a downloaded runtime archive into an install root.
type Installer struct {
	Prober *Prober
	Logger *log.Logger
}

// Install extracts archivePath into root, removes the archive and probes the result.
// A failed extraction leaves whatever was already written in place.
func (i *Installer) Install(ctx context.Context, archivePath, root, platformID string) (*Installation, error) {
	logger := orDiscard(i.Logger)
	err := extract(ctx, archivePath, root)
	if err != nil {
		return nil, err
	}
	removeQuietly(logger, archivePath)

	exe := ExecutablePath(root, platformID)
	if !fileExists(exe) {
		return nil, &ExtractionError{
			Archive: archivePath,
			Err:     fmt.Errorf("archive did not contain %s", filepath.ToSlash(mustRel(root, exe))),
		}
	}
	prober := i.Prober
	if prober == nil {
		prober = &Prober{Logger: i.Logger}
	}
	version, err := prober.Version(ctx, exe)
	if err != nil {
		return nil, err
	}
	logger.Debug("installed php", "root", root, "executable", exe, "version", version)
	return &Installation{
		Root:       root,
		Executable: exe,
		Version:    version,
	}, nil
}

// extract extracts a tar.gz archive into extractDir, keeping its directory structure.
// Entries are checked before anything is written.
func extract(ctx context.Context, archivePath, extractDir string) (errOut error) {
	defer func() {
		if errOut != nil && !isExtractionError(errOut) {
			errOut = &ExtractionError{Archive: archivePath, Err: errOut}
		}
	}()
	err := checkEntries(ctx, archivePath, extractDir)
	if err != nil {
		return err
	}
	err = os.MkdirAll(extractDir, 0o750)
	if err != nil {
		return err
	}
	tgz := &archiver.TarGz{
		Tar: &archiver.Tar{
			MkdirAll:          true,
			OverwriteExisting: true,
		},
	}
	return tgz.Unarchive(archivePath, extractDir)
}

// checkEntries reads every entry header and rejects entries, symlinks and hard
// links that would land outside extractDir.
func checkEntries(ctx context.Context, archivePath, extractDir string) (errOut error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer deferErr(&errOut, file.Close)

	format, reader, err := archiverv4.Identify(filepath.Base(archivePath), file)
	if err != nil {
		if errors.Is(err, archiverv4.ErrNoMatch) {
			err = fmt.Errorf("unable to identify archive format for %s", filepath.Base(archivePath))
		}
		return err
	}
	extractor, ok := format.(archiverv4.Extractor)
	if !ok {
		return fmt.Errorf("%s is not an extractable archive", filepath.Base(archivePath))
	}
	return extractor.Extract(ctx, reader, nil, func(_ context.Context, af archiverv4.File) error {
		return checkEntry(af, extractDir)
	})
}

func checkEntry(af archiverv4.File, extractDir string) error {
	name := strings.TrimPrefix(filepath.ToSlash(af.NameInArchive), "./")
	if name == "" || name == "." {
		return nil
	}
	target := filepath.Join(extractDir, filepath.FromSlash(name))
	if !isWithinDir(target, extractDir) {
		return fmt.Errorf("archive entry escapes destination directory: %s", af.NameInArchive)
	}
	hdr, ok := af.Header.(*tar.Header)
	if !ok {
		return nil
	}
	switch hdr.Typeflag {
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) ||
			!isWithinDir(filepath.Join(filepath.Dir(target), hdr.Linkname), extractDir) {
			return fmt.Errorf("symlink target escapes destination directory: %s -> %s", name, hdr.Linkname)
		}
	case tar.TypeLink:
		if filepath.IsAbs(hdr.Linkname) ||
			!isWithinDir(filepath.Join(extractDir, filepath.FromSlash(hdr.Linkname)), extractDir) {
			return fmt.Errorf("hard link target escapes destination directory: %s -> %s", name, hdr.Linkname)
		}
	}
	return nil
}

func isExtractionError(err error) bool {
	var exErr *ExtractionError
	return errors.As(err, &exErr)
}

// isWithinDir reports whether target is dir or inside it.
func isWithinDir(target, dir string) bool {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return absTarget == absDir || strings.HasPrefix(absTarget, absDir+string(os.PathSeparator))
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}
