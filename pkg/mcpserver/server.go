// Package mcpserver exposes the pipeline operations as MCP tools over
// stdio. Every tool returns both a structured payload and a derived
// human-readable rendering of it.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/arclabs561/webpipe/pkg/pipeline"
)

const serverName = "webpipe"

// Server serves the pipeline over an MCP stdio transport.
type Server struct {
	log     zerolog.Logger
	pipe    *pipeline.Pipeline
	version string
}

// New wires a tool server around the pipeline.
func New(log zerolog.Logger, pipe *pipeline.Pipeline, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{log: log, pipe: pipe, version: version}
}

// Run serves tool calls on stdio until the context ends or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: s.version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "search_evidence",
		Description: "Gather evidence for a query: search (or take explicit URLs), fetch each page " +
			"through the cache, extract readable text, and return the top ranked chunks.",
		Annotations: &mcp.ToolAnnotations{Title: "Search Evidence", ReadOnlyHint: true},
		InputSchema: evidenceSchema(),
	}, s.handleSearchEvidence)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "web_fetch",
		Description: "Fetch a single URL through the cache and the configured backend, returning status and metadata.",
		Annotations: &mcp.ToolAnnotations{Title: "Web Fetch", ReadOnlyHint: true},
		InputSchema: singleURLSchema(),
	}, s.handleWebFetch)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "web_extract",
		Description: "Fetch a single URL and return its extracted readable text.",
		Annotations: &mcp.ToolAnnotations{Title: "Web Extract", ReadOnlyHint: true},
		InputSchema: singleURLSchema(),
	}, s.handleWebExtract)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "cache_search",
		Description: "Rank chunks from previously fetched pages against a query without touching the network.",
		Annotations: &mcp.ToolAnnotations{Title: "Cache Search", ReadOnlyHint: true},
		InputSchema: cacheSearchSchema(),
	}, s.handleCacheSearch)

	s.log.Info().Str("server", serverName).Str("version", s.version).Msg("serving MCP on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleSearchEvidence(ctx context.Context, _ *mcp.CallToolRequest, in evidenceInput) (*mcp.CallToolResult, *pipeline.Result, error) {
	res := s.pipe.Run(ctx, in.toRequest())
	s.logResult("search_evidence", res)
	return toolResult(res), res, nil
}

func (s *Server) handleWebFetch(ctx context.Context, _ *mcp.CallToolRequest, in singleURLInput) (*mcp.CallToolResult, *pipeline.Result, error) {
	res := s.pipe.FetchURL(ctx, in.toRequest())
	s.logResult("web_fetch", res)
	return toolResult(res), res, nil
}

func (s *Server) handleWebExtract(ctx context.Context, _ *mcp.CallToolRequest, in singleURLInput) (*mcp.CallToolResult, *pipeline.Result, error) {
	res := s.pipe.ExtractURL(ctx, in.toRequest())
	s.logResult("web_extract", res)
	return toolResult(res), res, nil
}

func (s *Server) handleCacheSearch(ctx context.Context, _ *mcp.CallToolRequest, in pipeline.CacheSearchRequest) (*mcp.CallToolResult, *pipeline.Result, error) {
	res := s.pipe.CacheSearch(ctx, in)
	s.logResult("cache_search", res)
	return toolResult(res), res, nil
}

func (s *Server) logResult(tool string, res *pipeline.Result) {
	evt := s.log.Info().Str("tool", tool).Bool("ok", res.OK).Int64("elapsed_ms", res.ElapsedMs)
	if res.Error != nil {
		evt = evt.Str("error_code", string(res.Error.Code))
	}
	evt.Int("chunks", len(res.TopChunks)).Msg("tool call done")
}

func toolResult(res *pipeline.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: renderMarkdown(res)}},
		IsError: !res.OK,
	}
}
