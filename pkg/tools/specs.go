package tools

import (
	"encoding/json"

	"github.com/mranderson01901234/LOS-sub002/pkg/llm"
)

// Specs returns the provider-facing declarations for every built-in tool.
func Specs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        string(KindSaveNote),
			Description: "Save a new note to the library",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"title": {"type": "string", "description": "Note title"},
					"content": {"type": "string", "description": "Note body"}
				},
				"required": ["title"]
			}`),
		},
		{
			Name:        string(KindUpdateNote),
			Description: "Replace the content of an existing note",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Note id"},
					"content": {"type": "string", "description": "New note body"}
				},
				"required": ["id", "content"]
			}`),
		},
		{
			Name:        string(KindDeleteNote),
			Description: "Delete a note permanently. Requires confirm set to \"delete\".",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Note id"},
					"confirm": {"type": "string", "description": "Must be the literal string \"delete\""}
				},
				"required": ["id", "confirm"]
			}`),
		},
		{
			Name:        string(KindSearchLibrary),
			Description: "Search the user's saved library for relevant content",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search query"},
					"limit": {"type": "integer", "description": "Max results, default 5"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        string(KindListDocuments),
			Description: "List every document in the library",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        string(KindClearConversation),
			Description: "Erase the current conversation history. Requires confirm set to \"delete\".",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"confirm": {"type": "string", "description": "Must be the literal string \"delete\""}
				},
				"required": ["confirm"]
			}`),
		},
	}
}
