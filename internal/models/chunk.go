// Package models defines the shared data types of the retrieval pipeline.
package models

// Token estimation and chunk size bounds. One token is approximated as
// four characters of English text.
const (
	TokenCharRatio = 4
	MinChunkTokens = 300
	MaxChunkTokens = 400
)

// EstimateTokens approximates the token count of a text span.
func EstimateTokens(text string) int {
	return (len(text) + TokenCharRatio - 1) / TokenCharRatio
}

// Chunk is a sentence-aligned span of source text bounded to
// MinChunkTokens..MaxChunkTokens (the final chunk of a document may fall
// below the minimum).
type Chunk struct {
	Text          string `json:"text"`
	TokenEstimate int    `json:"tokenEstimate"`

	// Character offsets into the source text.
	StartOffset int `json:"startOffset"`
	EndOffset   int `json:"endOffset"`

	// Speaker is set only when exactly one distinct speaker contributed
	// to the chunk. Speakers holds everyone who did.
	Speaker  string   `json:"speaker,omitempty"`
	Speakers []string `json:"speakers,omitempty"`
}

// TranscriptSegment is a timed slice of an audio transcription, prior to
// chunking. Speaker is filled in by the attributor, not the transcriber.
type TranscriptSegment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcription is the output of the transcription service.
type Transcription struct {
	Text     string              `json:"text"`
	Duration float64             `json:"duration,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
}
