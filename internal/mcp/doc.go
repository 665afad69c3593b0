// Package mcp implements the Model Context Protocol (MCP) server for policyindex.
//
// The server exposes four tools to an answering agent:
//   - search_documents: rank stored policy passages against a question
//   - list_documents: list indexed document titles
//   - index_documents: ingest a directory of .pdf and .txt files
//   - get_status: report index statistics and indexing progress
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr because stdout carries the protocol.
//
// # Basic Usage
//
// The server is started via the serve command:
//
//	policyindex serve
//
// # Tool: search_documents
//
//	Request:
//	{
//	  "query": "how many vacation days do new hires get",
//	  "top_k": 4
//	}
//
//	Response:
//	{
//	  "query": "how many vacation days do new hires get",
//	  "results": [
//	    {
//	      "rank": 1,
//	      "chunk_id": "leave_policy_p2_c0",
//	      "document_id": "leave_policy",
//	      "title": "Leave Policy.pdf",
//	      "page_number": 2,
//	      "chunk_index": 0,
//	      "similarity": 0.83,
//	      "text": "New employees receive 15 vacation days..."
//	    }
//	  ],
//	  "total_results": 1,
//	  "duration_ms": 42,
//	  "cache_hit": false
//	}
//
// # Tool: index_documents
//
//	Request:
//	{
//	  "dir": "policies",
//	  "rebuild": false
//	}
//
// Only one build runs at a time. A second call while a build is running
// fails with ErrorCodeIndexingInProgress instead of waiting.
//
// # Error Codes
//
//   - -32602: invalid parameters (top_k out of range, missing directory)
//   - -32603: internal error (provider or database failure)
//   - -32002: indexing already in progress
//   - -32003: nothing indexed yet
//   - -32004: empty query
package mcp
