package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeArgs(t *testing.T, directory, filename, content string) json.RawMessage {
	t.Helper()
	out, err := json.Marshal(map[string]string{
		"directory": directory,
		"filename":  filename,
		"content":   content,
	})
	require.NoError(t, err)
	return out
}

func TestWriteFileCreatesDirectoryAndFile(t *testing.T) {
	base := t.TempDir()
	fn, meta := NewWriteFileTool(base, zap.NewNop())
	assert.Equal(t, WriteFileName, meta.Schema.Name)

	out, err := fn(context.Background(), writeArgs(t, "court_records", "Cleopatra.txt", "the verdict"))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Path   string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, filepath.Join(base, "court_records", "Cleopatra.txt"), resp.Path)

	content, err := os.ReadFile(resp.Path)
	require.NoError(t, err)
	assert.Equal(t, "the verdict", string(content))
}

func TestWriteFileOverwrites(t *testing.T) {
	base := t.TempDir()
	fn, _ := NewWriteFileTool(base, zap.NewNop())
	ctx := context.Background()

	_, err := fn(ctx, writeArgs(t, "records", "report.txt", "first version, quite long"))
	require.NoError(t, err)
	_, err = fn(ctx, writeArgs(t, "records", "report.txt", "second"))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(base, "records", "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestWriteFileNestedDirectories(t *testing.T) {
	base := t.TempDir()
	fn, _ := NewWriteFileTool(base, zap.NewNop())

	_, err := fn(context.Background(), writeArgs(t, filepath.Join("a", "b", "c"), "f.txt", "x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(base, "a", "b", "c", "f.txt"))
	assert.NoError(t, err)
}

func TestWriteFileRequiredArguments(t *testing.T) {
	fn, _ := NewWriteFileTool(t.TempDir(), zap.NewNop())

	_, err := fn(context.Background(), json.RawMessage(`{"content":"x"}`))
	assert.Error(t, err)
}

func TestWriteFilePropagatesFilesystemErrors(t *testing.T) {
	base := t.TempDir()
	// A file where the directory should go makes MkdirAll fail.
	blocker := filepath.Join(base, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	fn, _ := NewWriteFileTool(base, zap.NewNop())
	_, err := fn(context.Background(), writeArgs(t, "blocked", "f.txt", "x"))
	assert.Error(t, err)
}
