// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Coleus tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/library"
)

// ContractURI addresses the source page contract resource.
const ContractURI = "coleus://metadata-format"

// Server wraps the MCP server with Coleus tools.
type Server struct {
	mcp *server.MCPServer
	lib *library.Library
}

// New creates a new MCP server with all Coleus tools registered.
func New(lib *library.Library, version string) *Server {
	s := &Server{lib: lib}

	s.mcp = server.NewMCPServer(
		"Coleus",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_outline",
		mcp.WithDescription("Return the numbered outline of the latest build as JSON: prefix pages, then categories with their members."),
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read a published page with anchors placed and cross-references resolved."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page path (e.g. entries/ferns.md) or document id (e.g. ferns)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through published page content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List published pages with their section numbers."),
		mcp.WithString("kind", mcp.Description("Optional kind filter: category or entry")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages that reference the specified document id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_diagnostics",
		mcp.WithDescription("List problems found by the latest build: unknown categories, unresolved links or anchors, duplicate ids."),
		mcp.WithString("kind", mcp.Description("Optional kind filter (e.g. link_unresolved)")),
	), s.listDiagnostics)

	s.mcp.AddTool(mcp.NewTool("rebuild_book",
		mcp.WithDescription("Rebuild and publish the book from its sources, then report the result."),
	), s.rebuildBook)

	s.mcp.AddTool(mcp.NewTool("get_metadata_contract",
		mcp.WithDescription("Returns the source page contract: metadata block, anchor sentinel and cross-reference syntax. "+
			"Call this before authoring pages."),
	), s.getMetadataContract)

	// Resource: source page contract.
	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Source Page Contract",
			mcp.WithResourceDescription("Metadata block, anchor and cross-reference format of book source pages."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func lookupError(err error, what string) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", what))
	case errors.Is(err, apperr.ErrNoBuild):
		return mcp.NewToolResultError("no build available yet; call rebuild_book first")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) getOutline(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outline, err := s.lib.Outline(ctx)
	if err != nil {
		return lookupError(err, "outline"), nil
	}
	return jsonResult(outline)
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.lib.Page(ctx, ref)
	if err != nil {
		return lookupError(err, ref), nil
	}
	return mcp.NewToolResultText(page.Content), nil
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.lib.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("kind", "")
	rows, _, err := s.lib.Pages(ctx, kind, 1000, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s %s %s", r.Path, r.Number, r.Title)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.lib.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) listDiagnostics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diags, err := s.lib.Diagnostics(ctx, req.GetString("kind", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(diags) == 0 {
		return mcp.NewToolResultText("no diagnostics"), nil
	}
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, d.Error())
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) rebuildBook(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.lib.Rebuild(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("build %s: %d pages, %d diagnostics",
		res.BuildID, len(res.Pages), len(res.Diagnostics))), nil
}

func (s *Server) getMetadataContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MetadataContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     MetadataContract,
		},
	}, nil
}
