// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the mdbridge converter and vault tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/engine"
	"github.com/starford/mdbridge/internal/markdown"
	"github.com/starford/mdbridge/internal/richtext"
	"github.com/starford/mdbridge/internal/serializer"
)

// SyntaxURI is the resource URI of the syntax contract.
const SyntaxURI = "mdbridge://syntax"

// Server wraps the MCP server with mdbridge tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
	eng *engine.Engine
}

// New creates a new MCP server with all tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc, eng: svc.Engine()}

	s.mcp = server.NewMCPServer(
		"mdbridge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("parse_markdown",
		mcp.WithDescription("Convert Markdown to a rich content tree (JSON). "+
			"Understands wiki links, canvas links, embedded canvases, math and extended task states; "+
			"see the "+SyntaxURI+" resource."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown text, optionally with YAML frontmatter")),
	), s.parseMarkdown)

	s.mcp.AddTool(mcp.NewTool("serialize_tree",
		mcp.WithDescription("Convert a rich content tree (as returned by parse_markdown) back to Markdown."),
		mcp.WithObject("tree", mcp.Required(), mcp.Description("Document tree")),
		mcp.WithBoolean("preserve_wiki_links", mcp.Description("Keep [[wiki]] syntax (default true); false emits standard links")),
		mcp.WithBoolean("include_metadata", mcp.Description("Emit the document frontmatter (default true)")),
	), s.serializeTree)

	s.mcp.AddTool(mcp.NewTool("html_to_markdown",
		mcp.WithDescription("Convert editor HTML to Markdown."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML fragment")),
		mcp.WithBoolean("preserve_wiki_links", mcp.Description("Keep [[wiki]] syntax (default true)")),
	), s.htmlToMarkdown)

	s.mcp.AddTool(mcp.NewTool("detect_markdown",
		mcp.WithDescription("Report whether plain text looks like Markdown. Returns true or false."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to classify")),
	), s.detectMarkdown)

	s.mcp.AddTool(mcp.NewTool("extract_tasks",
		mcp.WithDescription("List the task items of a Markdown text with their states."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown text")),
	), s.extractTasks)

	s.mcp.AddTool(mcp.NewTool("read_note_tree",
		mcp.WithDescription("Read a vault note as a rich content tree with its links and backlinks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNoteTree)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List indexed notes, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_syntax_contract",
		mcp.WithDescription("Returns the Markdown dialect reference. "+
			"Call this before writing notes that use wiki links, canvases, math or task states."),
	), s.getSyntaxContract)

	s.mcp.AddResource(
		mcp.NewResource(SyntaxURI, "Markdown Syntax",
			mcp.WithResourceDescription("Markdown dialect understood by the converter."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
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

// textArg returns a required text argument. A missing or non-string value
// is an invalid argument.
func textArg(req mcp.CallToolRequest, name string) (string, error) {
	v, err := engine.TextArg(req.GetArguments()[name])
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func (s *Server) options(req mcp.CallToolRequest) serializer.Options {
	opts := s.eng.Defaults()
	opts.PreserveWikiLinks = req.GetBool("preserve_wiki_links", opts.PreserveWikiLinks)
	opts.IncludeMetadata = req.GetBool("include_metadata", opts.IncludeMetadata)
	return opts
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) parseMarkdown(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := textArg(req, "markdown")
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(s.eng.Parse(md))
}

func (s *Server) serializeTree(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["tree"]
	if !ok || raw == nil {
		return mcp.NewToolResultError("tree: " + apperr.ErrInvalidArgument.Error()), nil
	}
	var data []byte
	if str, isStr := raw.(string); isStr {
		data = []byte(str)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return errorResult(err), nil
		}
	}
	tree, err := richtext.Decode(data)
	if err != nil {
		return errorResult(err), nil
	}
	md, err := s.eng.Serialize(tree, s.options(req))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) htmlToMarkdown(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	html, err := textArg(req, "html")
	if err != nil {
		return errorResult(err), nil
	}
	md, err := s.eng.ConvertHTML(html, s.options(req))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) detectMarkdown(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := textArg(req, "text")
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprint(s.eng.IsMarkdown(text))), nil
}

func (s *Server) extractTasks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := textArg(req, "markdown")
	if err != nil {
		return errorResult(err), nil
	}
	tasks := markdown.ExtractTasks(s.eng.Parse(md))
	if len(tasks) == 0 {
		return mcp.NewToolResultText("no tasks found"), nil
	}
	return jsonResult(tasks)
}

func (s *Server) readNoteTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetTree(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return errorResult(err), nil
	}
	return jsonResult(note)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListNotes(ctx,
		req.GetInt("limit", 0),
		req.GetInt("offset", 0),
		req.GetString("tag", ""),
	)
	if err != nil {
		return errorResult(err), nil
	}

	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	seen := make(map[string]struct{}, len(links))
	var sources []string
	for _, l := range links {
		if _, ok := seen[l.Source]; ok {
			continue
		}
		seen[l.Source] = struct{}{}
		sources = append(sources, l.Source)
	}
	return mcp.NewToolResultText(strings.Join(sources, "\n")), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results)
}

func (s *Server) getSyntaxContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SyntaxContract), nil
}

func (s *Server) readSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SyntaxURI,
			MIMEType: "text/markdown",
			Text:     SyntaxContract,
		},
	}, nil
}
