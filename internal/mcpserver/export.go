package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/starford/asteria/internal/storage"
)

// ExportDir is the directory inside the export store that receives files.
const ExportDir = "exports"

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type exportResult struct {
	SavedPath string `json:"savedPath"`
	Format    string `json:"format"`
	Bytes     int    `json:"bytes"`
}

func (s *Server) exportDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := strings.ToLower(req.GetString("format", "json"))
	if format != "json" && format != "yaml" {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format: %s (allowed: json, yaml)", format)), nil
	}

	var (
		data []byte
		err  error
	)
	if format == "json" {
		data, err = json.MarshalIndent(s.svc.Diagram(ctx).Diagram, "", "  ")
	} else {
		p, pErr := s.svc.Project(ctx)
		if pErr != nil {
			return mcp.NewToolResultError(pErr.Error()), nil
		}
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	savePath := path.Join(ExportDir, exportFilename(req.GetString("filename", ""), format))
	exists, err := s.exports.Exists(savePath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if exists {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", savePath)), nil
	}
	if err := s.exports.Write(savePath, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save export: %v", err)), nil
	}

	return jsonResult(exportResult{SavedPath: savePath, Format: format, Bytes: len(data)})
}

// exportFilename strips directories and unsafe characters from name and
// forces the extension of format. Empty names become a random UUID.
func exportFilename(name, format string) string {
	ext := "." + format
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = uuid.New().String()
	}
	return name + ext
}

type exportList struct {
	Exports []storage.Entry `json:"exports"`
	Total   int             `json:"total"`
}

func (s *Server) listExports(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.exports.List(ExportDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(exportList{Exports: entries, Total: len(entries)})
}

func (s *Server) deleteExport(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p = path.Clean(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
	if path.Dir(p) != ExportDir {
		return mcp.NewToolResultError(fmt.Sprintf("not an export: %s", p)), nil
	}
	if err := s.exports.Delete(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mcp.NewToolResultError(fmt.Sprintf("export not found: %s", p)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", p)), nil
}
