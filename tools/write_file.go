package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/llm"
)

// WriteFileName is the tool name used by the report stage.
const WriteFileName = "write_file"

type writeFileArgs struct {
	Directory string `json:"directory"`
	Filename  string `json:"filename"`
	Content   string `json:"content"`
}

type writeFileResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

// NewWriteFileTool returns the tool that writes content as a file's entire
// body, creating the directory if absent and truncating any prior content.
// Filesystem errors propagate untranslated.
//
// baseDir, when non-empty, anchors relative directories; the report stage
// passes the working directory so tests can redirect output.
func NewWriteFileTool(baseDir string, logger *zap.Logger) (Func, Metadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params writeFileArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid write_file arguments: %w", err)
		}
		if params.Directory == "" || params.Filename == "" {
			return nil, fmt.Errorf("directory and filename are required")
		}

		dir := params.Directory
		if baseDir != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}

		target := filepath.Join(dir, params.Filename)
		if err := os.WriteFile(target, []byte(params.Content), 0o644); err != nil {
			return nil, err
		}

		logger.Info("wrote file",
			zap.String("path", target),
			zap.Int("bytes", len(params.Content)))

		out, err := json.Marshal(writeFileResponse{Status: "success", Path: target})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	meta := Metadata{
		Schema: llm.ToolSchema{
			Name:        WriteFileName,
			Description: "Write the final report to a text file, overwriting any previous version.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"directory": {"type": "string", "description": "Target directory, created if missing"},
					"filename": {"type": "string", "description": "File name within the directory"},
					"content": {"type": "string", "description": "Complete file body"}
				},
				"required": ["directory", "filename", "content"]
			}`),
		},
	}
	return fn, meta
}
