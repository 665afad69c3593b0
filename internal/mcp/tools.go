package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/policyindex/internal/indexer"
	"github.com/dshills/policyindex/internal/searcher"
	"github.com/dshills/policyindex/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Nothing has been indexed yet
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", s.cfg.TopK)
	if topK < 1 || topK > MaxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("top_k must be between 1 and %d", MaxTopK), map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	if _, err := s.store.Dimension(ctx); err != nil {
		if errors.Is(err, storage.ErrDimensionUnknown) {
			return nil, notIndexedError()
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp, err := s.searcher.Search(ctx, query, topK)
	if errors.Is(err, searcher.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query contains no searchable text", map[string]interface{}{
			"param":  "query",
			"reason": "blank after normalization",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]interface{}{
			"rank":        r.Rank,
			"chunk_id":    r.ChunkID,
			"document_id": r.DocumentID,
			"title":       r.Title,
			"page_number": r.PageNumber,
			"chunk_index": r.ChunkIndex,
			"similarity":  r.Similarity,
			"text":        r.Text,
		}
	}

	response := map[string]interface{}{
		"query":         resp.Query,
		"results":       results,
		"total_results": len(results),
		"duration_ms":   resp.Duration.Milliseconds(),
		"cache_hit":     resp.CacheHit,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListDocuments handles the list_documents tool invocation
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	titles, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list documents", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"documents": titles,
		"count":     len(titles),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexDocuments handles the index_documents tool invocation
func (s *Server) handleIndexDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	dir := getStringDefault(args, "dir", "")
	if dir == "" {
		dir = s.cfg.SourceDir
	}
	if err := validateDir(dir); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid dir", map[string]interface{}{
			"param":  "dir",
			"reason": err.Error(),
		})
	}
	rebuild := getBoolDefault(args, "rebuild", false)

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	defer s.lock.Release()

	stats, err := s.indexer.Build(ctx, indexer.Options{
		Dir:       dir,
		ChunkSize: s.cfg.Chunker.ChunkSize,
		Overlap:   s.cfg.Chunker.Overlap,
		BatchSize: s.cfg.Embedder.BatchSize,
		Workers:   s.cfg.Embedder.Workers,
		Rebuild:   rebuild,
	})
	if errors.Is(err, indexer.ErrNoDocuments) || errors.Is(err, indexer.ErrNoChunks) {
		response := map[string]interface{}{
			"indexed": false,
			"dir":     dir,
			"message": err.Error(),
		}
		if stats != nil {
			response["documents_found"] = stats.DocumentsFound
			response["documents_failed"] = stats.DocumentsFailed
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"indexed":           true,
		"run_id":            stats.RunID,
		"dir":               dir,
		"rebuild":           rebuild,
		"documents_found":   stats.DocumentsFound,
		"documents_indexed": stats.DocumentsIndexed,
		"documents_failed":  stats.DocumentsFailed,
		"chunks_stored":     stats.ChunksStored,
		"dimension":         stats.Dimension,
		"duration_ms":       stats.Duration.Milliseconds(),
	}

	if len(stats.Errors) > 0 {
		// Include first few errors
		errorCount := len(stats.Errors)
		if errorCount > 5 {
			response["errors"] = stats.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":  stats.Dimension > 0 && stats.Chunks > 0,
		"database": s.cfg.RedactedDatabaseURL(),
		"statistics": map[string]interface{}{
			"backend":          stats.Backend,
			"documents_count":  stats.Documents,
			"chunks_count":     stats.Chunks,
			"embeddings_count": stats.Embeddings,
			"dimension":        stats.Dimension,
		},
		"embedder": map[string]interface{}{
			"provider": s.embedder.Provider(),
			"model":    s.embedder.Model(),
		},
		"indexing_in_progress": s.lock.Locked(),
	}

	if s.lock.Locked() {
		embedded, total := s.indexer.Progress()
		response["progress"] = map[string]interface{}{
			"embedded_chunks": embedded,
			"total_chunks":    total,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func notIndexedError() error {
	return newMCPError(ErrorCodeNotIndexed, "no documents indexed. Use index_documents to build the index.", nil)
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateDir checks that dir is an existing, readable directory
func validateDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return ErrDirNotFound
	}
	if err != nil {
		return ErrDirNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(dir)
	if err != nil {
		return ErrDirNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrDirNotFound    = errors.New("directory does not exist")
	ErrDirNotReadable = errors.New("directory is not readable")
	ErrNotDirectory   = errors.New("path is not a directory")
)
