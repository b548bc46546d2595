// Package chunk splits extracted text into sentence-aligned,
// bounded-size passages.
package chunk

import (
	"sort"
	"strings"

	"github.com/fieldnotes-ai/recall/internal/models"
)

// Config defines chunking parameters.
type Config struct {
	// MinTokens: chunks below this are never emitted, except the final
	// chunk of a document.
	MinTokens int
	// MaxTokens: a sentence is never split, but accumulation stops here.
	MaxTokens int
}

// DefaultConfig returns the chunk size bounds used across the pipeline.
func DefaultConfig() Config {
	return Config{
		MinTokens: models.MinChunkTokens,
		MaxTokens: models.MaxChunkTokens,
	}
}

// sentence is a span of the source text ending at a sentence boundary.
type sentence struct {
	text  string
	start int
	end   int
}

// speakerKeyLen bounds the prefix of a segment used as its matching key.
const speakerKeyLen = 50

// Split chunks text into passages of MinTokens..MaxTokens, grouping whole
// sentences. When speakerSegments is provided, every chunk accumulates the
// speakers whose segment text occurs within it.
func Split(text string, speakerSegments []models.TranscriptSegment) []models.Chunk {
	return SplitWithConfig(text, speakerSegments, DefaultConfig())
}

// SplitWithConfig is Split with explicit size bounds.
func SplitWithConfig(text string, speakerSegments []models.TranscriptSegment, cfg Config) []models.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []models.Chunk
	var buf strings.Builder
	bufStart := 0
	speakers := map[string]struct{}{}

	flush := func(end int) {
		content := strings.TrimSpace(buf.String())
		if content == "" {
			return
		}
		chunks = append(chunks, models.Chunk{
			Text:          content,
			TokenEstimate: models.EstimateTokens(content),
			StartOffset:   bufStart,
			EndOffset:     end,
			Speaker:       primarySpeaker(speakers),
			Speakers:      speakerList(speakers),
		})
	}

	for _, s := range sentences {
		bufTokens := models.EstimateTokens(buf.String())
		sentTokens := models.EstimateTokens(s.text)

		if buf.Len() > 0 && bufTokens+sentTokens > cfg.MaxTokens {
			if bufTokens >= cfg.MinTokens {
				flush(s.start)
				buf.Reset()
				buf.WriteString(s.text)
				bufStart = s.start
				speakers = map[string]struct{}{}
				addSpeakers(speakers, text, s, speakerSegments)
				continue
			}
			// Under the minimum: force-append, never emit a short chunk
			// mid-document.
			buf.WriteString(" ")
			buf.WriteString(s.text)
			addSpeakers(speakers, text, s, speakerSegments)
			continue
		}

		if buf.Len() == 0 {
			bufStart = s.start
		} else {
			buf.WriteString(" ")
		}
		buf.WriteString(s.text)
		addSpeakers(speakers, text, s, speakerSegments)
	}

	flush(len(text))
	return chunks
}

// splitSentences splits on `.`, `!` or `?` followed by whitespace. Any
// trailing fragment after the last boundary counts as a final sentence.
func splitSentences(text string) []sentence {
	var sentences []sentence
	lastEnd := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(text) && isSpace(text[i+1]) {
			raw := strings.TrimSpace(text[lastEnd : i+1])
			if raw != "" {
				sentences = append(sentences, sentence{text: raw, start: lastEnd, end: i + 1})
			}
			// Skip the whitespace run after the boundary.
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			lastEnd = j
			i = j - 1
		}
	}

	if lastEnd < len(text) {
		raw := strings.TrimSpace(text[lastEnd:])
		if raw != "" {
			sentences = append(sentences, sentence{text: raw, start: lastEnd, end: len(text)})
		}
	}

	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// addSpeakers accumulates every speaker whose segment text (matched by
// its lower-cased 50-char prefix) occurs within the sentence's range.
func addSpeakers(speakers map[string]struct{}, text string, s sentence, segments []models.TranscriptSegment) {
	if len(segments) == 0 {
		return
	}
	rangeText := strings.ToLower(text[s.start:s.end])
	for _, seg := range segments {
		if seg.Speaker == "" || seg.Text == "" {
			continue
		}
		key := strings.ToLower(seg.Text)
		if len(key) > speakerKeyLen {
			key = key[:speakerKeyLen]
		}
		if strings.Contains(rangeText, key) {
			speakers[seg.Speaker] = struct{}{}
		}
	}
}

// primarySpeaker returns the chunk's single speaker, or "" when zero or
// several distinct speakers contributed.
func primarySpeaker(speakers map[string]struct{}) string {
	if len(speakers) != 1 {
		return ""
	}
	for s := range speakers {
		return s
	}
	return ""
}

func speakerList(speakers map[string]struct{}) []string {
	if len(speakers) == 0 {
		return nil
	}
	out := make([]string, 0, len(speakers))
	for s := range speakers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
