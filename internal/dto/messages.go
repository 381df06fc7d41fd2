package dto

// EmbedDocumentMessage asks the background consumer to (re)generate
// embeddings for every chunk of a document.
type EmbedDocumentMessage struct {
	DocumentID string `json:"document_id"`
}
