package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/policyindex/internal/config"
	"github.com/dshills/policyindex/internal/embedder"
	"github.com/dshills/policyindex/internal/indexer"
	"github.com/dshills/policyindex/internal/logger"
	"github.com/dshills/policyindex/internal/searcher"
	"github.com/dshills/policyindex/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "policyindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	store    storage.Store
	embedder embedder.Embedder
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	lock     indexer.IndexLock
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance. The indexer and searcher
// share emb, so embeddings cached while indexing are reused by queries.
func NewServer(cfg *config.Config, store storage.Store, emb embedder.Embedder, log *slog.Logger) *Server {
	log = logger.OrDefault(log)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		store:    store,
		embedder: emb,
		indexer:  indexer.New(store, emb, log),
		searcher: searcher.NewSearcher(store, emb),
		logger:   log,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(indexDocumentsTool(), s.handleIndexDocuments)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
