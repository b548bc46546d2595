package models

import "time"

// Payload is the metadata stored alongside each vector point. Field names
// match the wire form used in the vector store.
type Payload struct {
	Text       string     `json:"text"`
	JobID      string     `json:"jobId"`
	UserID     string     `json:"userId"`
	Modality   string     `json:"modality"`
	ChunkIndex int        `json:"chunkIndex"`
	TokenCount int        `json:"tokenCount,omitempty"`
	Keywords   []string   `json:"keywords"`
	Speakers   []string   `json:"speakers,omitempty"`
	Speaker    string     `json:"speaker,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Topics     []string   `json:"topics,omitempty"`
	SourceName string     `json:"sourceName,omitempty"`
	SourceDate *time.Time `json:"sourceDate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// SearchResult is a single ranked passage returned by retrieval.
type SearchResult struct {
	ID      uint64  `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}
