// Package backup packs consistent snapshots of the database files into a
// zip archive.
package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Source is one database file that can produce a consistent copy of itself.
// Implemented by *store.Store.
type Source interface {
	Path() string
	Snapshot(ctx context.Context, dest string) error
}

// FileName returns the archive name for a backup taken at now.
func FileName(now time.Time) string {
	return "backup-" + now.UTC().Format("20060102T150405Z") + ".zip"
}

// Write streams a zip archive to w holding one snapshot per source, named
// after the source file. Snapshots are staged in a temporary directory that
// is removed before Write returns.
func Write(ctx context.Context, w io.Writer, sources []Source, now time.Time) error {
	staging, err := os.MkdirTemp("", "ecofmm-backup-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	zw := zip.NewWriter(w)
	used := make(map[string]bool)

	for i, src := range sources {
		name := filepath.Base(src.Path())
		if used[name] {
			name = fmt.Sprintf("%d-%s", i, name)
		}
		used[name] = true

		snap := filepath.Join(staging, name)
		if err := src.Snapshot(ctx, snap); err != nil {
			return fmt.Errorf("snapshot %s: %w", src.Path(), err)
		}
		if err := addFile(zw, snap, name, now); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

// CreateFile writes an archive into dir and returns its path. The archive
// appears under its final name only once it is complete.
func CreateFile(ctx context.Context, dir string, sources []Source, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".backup-*.zip.partial")
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer os.Remove(tmp.Name()) // No-op after rename

	if err := Write(ctx, tmp, sources, now); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}

	dest := filepath.Join(dir, FileName(now))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("publish archive: %w", err)
	}
	return dest, nil
}

func addFile(zw *zip.Writer, path, name string, modified time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}
