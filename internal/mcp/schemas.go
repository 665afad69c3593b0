package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// MaxTopK is the largest top_k accepted by search_documents
	MaxTopK = 50
)

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Find the policy passages most relevant to a question. Returns ranked chunks with document title, page and similarity.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question or keywords",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of passages to return (1-50)",
					"default":     4,
					"minimum":     1,
					"maximum":     MaxTopK,
				},
			},
			Required: []string{"query"},
		},
	}
}

// listDocumentsTool returns the tool definition for list_documents
func listDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_documents",
		Description: "List the titles of all indexed policy documents",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// indexDocumentsTool returns the tool definition for index_documents
func indexDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_documents",
		Description: "Ingest the .pdf and .txt files of a directory: extract, chunk, embed and store them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dir": map[string]interface{}{
					"type":        "string",
					"description": "Directory holding the source documents (defaults to the configured source directory)",
				},
				"rebuild": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, delete every stored document before indexing",
					"default":     false,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics, embedding provider and whether indexing is running",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
