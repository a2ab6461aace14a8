package sandbox

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestWorkspace_PrepareUnpacksSubmission(t *testing.T) {
	dir := t.TempDir()
	dockerfile := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(dockerfile, []byte("FROM scratch"), 0o644))

	root := t.TempDir()
	ws := newWorkspace(root, 1, 2)
	archive := buildZip(t, map[string]string{"main.py": "print(1)"})

	require.NoError(t, ws.prepare(dockerfile, archive))

	got, err := os.ReadFile(filepath.Join(ws.dir, "submission", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(got))

	got, err = os.ReadFile(filepath.Join(ws.dir, "Dockerfile"))
	require.NoError(t, err)
	assert.Equal(t, "FROM scratch", string(got))
}

func TestWorkspace_PrepareWipesStaleDirectory(t *testing.T) {
	dir := t.TempDir()
	dockerfile := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(dockerfile, []byte("FROM scratch"), 0o644))

	root := t.TempDir()
	ws := newWorkspace(root, 1, 2)
	require.NoError(t, os.MkdirAll(ws.dir, 0o755))
	stale := filepath.Join(ws.dir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	archive := buildZip(t, map[string]string{"main.py": "print(1)"})
	require.NoError(t, ws.prepare(dockerfile, archive))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestUnzip_RejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("../../evil.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("pwned"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dest := t.TempDir()
	err = unzip(buf.Bytes(), dest)
	assert.Error(t, err)
}
