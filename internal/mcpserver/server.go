// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the project diagram tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/projectservice"
	"github.com/starford/asteria/internal/storage"
)

// LayoutContractURI identifies the layout contract resource.
const LayoutContractURI = "asteria://layout-contract"

// Server wraps the MCP server with the project tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *projectservice.Service
	exports storage.Provider
}

// New creates a new MCP server with all tools registered. exports receives
// files written by export_diagram; when nil, that tool is not registered.
func New(svc *projectservice.Service, exports storage.Provider) *Server {
	s := &Server{svc: svc, exports: exports}

	s.mcp = server.NewMCPServer(
		"Asteria",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Return the current project tree: technical challenges and their biological models."),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("get_diagram",
		mcp.WithDescription("Return the laid-out diagram (nodes and edges) of the current project. "+
			"Read the layout contract via get_layout_contract or the "+LayoutContractURI+" resource "+
			"to interpret node positions."),
	), s.getDiagram)

	s.mcp.AddTool(mcp.NewTool("add_model",
		mcp.WithDescription("Add a biological model to a technical challenge. The model is persisted "+
			"locally and survives project reloads."),
		mcp.WithNumber("challenge_id", mcp.Required(), mcp.Description("Id of the technical challenge")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new biological model")),
	), s.addModel)

	s.mcp.AddTool(mcp.NewTool("reload_project",
		mcp.WithDescription("Re-fetch the project from its source and recompute the diagram."),
	), s.reloadProject)

	s.mcp.AddTool(mcp.NewTool("get_layout_contract",
		mcp.WithDescription("Returns the rules that place diagram nodes on the canvas."),
	), s.getLayoutContract)

	if exports != nil {
		s.mcp.AddTool(mcp.NewTool("export_diagram",
			mcp.WithDescription("Write the current diagram to the export directory and return the saved path."),
			mcp.WithString("filename", mcp.Description("Optional file name (a random name is used when empty)")),
			mcp.WithString("format", mcp.Description("json (diagram, default) or yaml (project tree)")),
		), s.exportDiagram)

		s.mcp.AddTool(mcp.NewTool("list_exports",
			mcp.WithDescription("List the files written by export_diagram with their size, checksum and modification time."),
		), s.listExports)

		s.mcp.AddTool(mcp.NewTool("delete_export",
			mcp.WithDescription("Delete a file written by export_diagram."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Saved path as returned by export_diagram or list_exports")),
		), s.deleteExport)
	}

	s.mcp.AddResource(
		mcp.NewResource(LayoutContractURI, "Layout Contract",
			mcp.WithResourceDescription("Columns, row spacing and node ordering used by the diagram layout."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getProject(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.svc.Project(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

func (s *Server) getDiagram(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Diagram(ctx).Diagram)
}

func (s *Server) addModel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireFloat("challenge_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	challengeID, ok := wholeNumber(raw)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("challenge_id must be a whole number, got %v", raw)), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m, err := s.svc.AddModel(ctx, challengeID, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("challenge not found: %d", challengeID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m)
}

// wholeNumber converts a JSON number to an id. Fractions, NaN and values
// outside the exactly representable integer range are rejected.
func wholeNumber(f float64) (int64, bool) {
	const maxExact = 1 << 53
	if f != math.Trunc(f) || f > maxExact || f < -maxExact {
		return 0, false
	}
	return int64(f), true
}

func (s *Server) reloadProject(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.svc.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reloaded project %d: %d challenges, %d models",
		p.ID, len(p.TechnicalChallenges), p.ModelCount())), nil
}

func (s *Server) getLayoutContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayoutContract), nil
}

func (s *Server) readLayoutContractResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutContractURI,
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}
