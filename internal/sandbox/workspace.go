package sandbox

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// workspace is the on-disk staging area for one grading job, at
// <root>/<userID>-<taskID>/, mirroring the original implementation's
// /tmp/securegrade/<user>-<task> convention.
type workspace struct {
	dir string
}

func newWorkspace(root string, userID, taskID int) *workspace {
	return &workspace{dir: filepath.Join(root, fmt.Sprintf("%d-%d", userID, taskID))}
}

// prepare wipes any stale directory from a previous run, recreates it,
// copies in the language's Dockerfile, writes the submission archive to
// dir/submission.zip, and unpacks it under dir/submission.
func (w *workspace) prepare(dockerfile string, archive []byte) error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("clearing workspace: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	dockerfileSrc, err := os.ReadFile(dockerfile)
	if err != nil {
		return fmt.Errorf("reading dockerfile: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, "Dockerfile"), dockerfileSrc, 0o644); err != nil {
		return fmt.Errorf("writing dockerfile: %w", err)
	}

	if err := os.WriteFile(filepath.Join(w.dir, "submission.zip"), archive, 0o644); err != nil {
		return fmt.Errorf("writing submission archive: %w", err)
	}

	if err := unzip(archive, filepath.Join(w.dir, "submission")); err != nil {
		return fmt.Errorf("unpacking submission: %w", err)
	}

	return nil
}

// cleanup removes the workspace directory. Called once the image has been
// built, since the build step is the last thing that needs it on disk.
func (w *workspace) cleanup() error {
	return os.RemoveAll(w.dir)
}

func unzip(archive []byte, dest string) error {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !isWithin(dest, target) {
			return fmt.Errorf("zip entry %q escapes destination", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		src, err := f.Open()
		if err != nil {
			return err
		}

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			src.Close()
			return err
		}

		_, copyErr := io.Copy(out, src)
		src.Close()
		out.Close()
		if copyErr != nil {
			return copyErr
		}
	}

	return nil
}

func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !bytes.HasPrefix([]byte(rel), []byte(".."+string(filepath.Separator)))
}
