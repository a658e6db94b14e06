package model

// SourceDocument is what a document source hands to the indexer.
type SourceDocument struct {
	DocumentKey string `json:"document_key"`
	Title       string `json:"title"`
	Text        string `json:"text"`
}
