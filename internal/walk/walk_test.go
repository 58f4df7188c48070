package walk

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/txtconv/internal/model"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]int) {
	t.Helper()
	for path, size := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, bytes.Repeat([]byte("a"), size), 0o644))
	}
}

func sizeVisitor(path string, info os.FileInfo) (model.StatsEntry, error) {
	return model.StatsEntry{Path: path, SizeBytes: info.Size(), CreatedAt: info.ModTime()}, nil
}

func TestMatchExt(t *testing.T) {
	require.True(t, MatchExt("a.LOG", "log"))
	require.True(t, MatchExt("a.log", ".LOG"))
	require.False(t, MatchExt("a.logs", "log"))
	require.False(t, MatchExt("log", "log"))
	require.False(t, MatchExt("a.log", ""))
	require.True(t, MatchExt("backup.tar.gz", "tar.gz"))
	require.True(t, MatchExt("backup.TAR.GZ", ".tar.gz"))
	require.False(t, MatchExt("backup.gz", "tar.gz"))
	require.False(t, MatchExt("backuptar.gz", "tar.gz"))
}

func TestWalkMultiDotExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]int{
		"/data/a.tar.gz": 3,
		"/data/b.gz":     4,
		"/data/c.TAR.GZ": 5,
	})

	files, err := New(fs).Files("/data", "tar.gz", false)
	require.NoError(t, err)
	require.Equal(t, []string{"/data/a.tar.gz", "/data/c.TAR.GZ"}, files)
}

func TestWalkNonRecursiveTotals(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]int{
		"/data/a.log":     10 * 1024,
		"/data/b.log":     5 * 1024,
		"/data/c.txt":     7,
		"/data/sub/d.log": 99,
	})

	total, err := New(fs).Walk("/data", "log", false, sizeVisitor)
	require.NoError(t, err)
	require.Len(t, total.Directories, 1)
	ds := total.Directories[0]
	require.Equal(t, "/data", ds.Path)
	require.Equal(t, int64(15360), ds.TotalBytes)
	require.Equal(t, 2, ds.FileCount)
	require.Equal(t, int64(15360), total.TotalBytes)
	require.Equal(t, 2, total.FileCount)
}

func TestWalkRecursivePreOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]int{
		"/r/z.txt":          1,
		"/r/a/x.txt":        2,
		"/r/a/deep/y.TXT":   3,
		"/r/b/w.txt":        4,
		"/r/empty/n.md":     5,
		"/r/empty/in/m.txt": 6,
	})

	w := New(fs)
	files, err := w.Files("/r", ".txt", true)
	require.NoError(t, err)
	want := []string{"/r/z.txt", "/r/a/x.txt", "/r/a/deep/y.TXT", "/r/b/w.txt", "/r/empty/in/m.txt"}
	require.Equal(t, want, files)

	var visited []string
	total, err := w.Walk("/r", "txt", true, func(path string, info os.FileInfo) (model.StatsEntry, error) {
		visited = append(visited, path)
		return sizeVisitor(path, info)
	})
	require.NoError(t, err)
	require.Equal(t, want, visited)

	var dirs []string
	var sumBytes int64
	var sumFiles int
	for _, d := range total.Directories {
		dirs = append(dirs, d.Path)
		sumBytes += d.TotalBytes
		sumFiles += d.FileCount
	}
	require.Equal(t, []string{"/r", "/r/a", "/r/a/deep", "/r/b", "/r/empty/in"}, dirs)
	require.Equal(t, total.TotalBytes, sumBytes)
	require.Equal(t, total.FileCount, sumFiles)
	require.Equal(t, int64(16), total.TotalBytes)
}

func TestWalkIsolatesFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]int{
		"/d/a.txt": 10,
		"/d/b.txt": 20,
		"/d/c.txt": 30,
	})
	boom := errors.New("boom")

	total, err := New(fs).Walk("/d", "txt", false, func(path string, info os.FileInfo) (model.StatsEntry, error) {
		if filepath.Base(path) == "b.txt" {
			return model.StatsEntry{}, boom
		}
		return sizeVisitor(path, info)
	})
	require.NoError(t, err)
	require.Equal(t, 2, total.FileCount)
	require.Equal(t, int64(40), total.TotalBytes)
	require.Equal(t, 1, total.Failed)

	entries := total.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "/d/b.txt", entries[1].Path)
	require.ErrorIs(t, entries[1].Err, boom)
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := New(afero.NewMemMapFs()).Walk("/nope", "txt", true, sizeVisitor)
	require.Error(t, err)
}

func TestWalkDeepTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/deep"
	files := map[string]int{}
	for i := 0; i < 200; i++ {
		path = filepath.Join(path, "d")
		files[filepath.Join(path, "f.txt")] = 1
	}
	writeFiles(t, fs, files)

	total, err := New(fs).Walk("/deep", "txt", true, sizeVisitor)
	require.NoError(t, err)
	require.Equal(t, 200, total.FileCount)
	require.Len(t, total.Directories, 200)
}
