package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fieldnotes-ai/recall/internal/models"
)

// Completer is the completion surface the extraction helpers need. *Model
// satisfies it; tests inject doubles.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor derives structured metadata from ingested content via
// JSON-mode completions.
type Extractor struct {
	client Completer
}

// NewExtractor creates a metadata extractor.
func NewExtractor(client Completer) *Extractor {
	return &Extractor{client: client}
}

const extractionSystemPrompt = "You are a metadata extraction assistant. Always respond with valid JSON only."

// genericPromptLimit caps how much content is sent for extraction.
const genericPromptLimit = 8000

// ExtractAudio extracts metadata from an audio transcription. A failed or
// malformed completion degrades to frequency-based keywords rather than
// failing the ingestion.
func (e *Extractor) ExtractAudio(ctx context.Context, transcript string, duration float64) models.Metadata {
	durationNote := ""
	if duration > 0 {
		durationNote = fmt.Sprintf(" The recording is %.0f seconds long.", duration)
	}

	prompt := fmt.Sprintf(`Analyze the following audio transcription and extract structured metadata. This appears to be a meeting, conversation, or audio recording.%s

Transcription:
%s

Please provide:
1. Key topics/keywords (5-10 most important)
2. Speakers mentioned or detected (if any) - extract names or speaker identifiers
3. A brief summary (1-2 sentences)
4. Main topics discussed
5. Action items or tasks mentioned (if any) - things that need to be done
6. Key decisions made (if any)
7. Meeting title or subject (if identifiable)
8. Participants mentioned (if any)

Respond in JSON format:
{
  "keywords": ["keyword1", "keyword2", ...],
  "speakers": ["speaker1", "speaker2"] or null,
  "summary": "brief summary",
  "topics": ["topic1", "topic2", ...],
  "actionItems": ["action 1", "action 2"] or null,
  "decisions": ["decision 1", "decision 2"] or null,
  "meetingTitle": "title" or null,
  "participants": ["participant1", "participant2"] or null
}`, durationNote, transcript)

	meta, err := e.extract(ctx, prompt)
	if err != nil {
		slog.Warn("audio metadata extraction failed, using keyword fallback", "error", err)
		return fallbackMetadata(transcript)
	}
	return meta
}

// ExtractGeneric extracts metadata from document or plain-text content.
func (e *Extractor) ExtractGeneric(ctx context.Context, text, contentType string) models.Metadata {
	body := text
	if len(body) > genericPromptLimit {
		body = body[:genericPromptLimit] + "..."
	}

	prompt := fmt.Sprintf(`Analyze the following %s content and extract structured metadata.

Content:
%s

Please provide:
1. Key topics/keywords (5-10 most important)
2. A brief summary (1-2 sentences)
3. Main topics discussed

Respond in JSON format:
{
  "keywords": ["keyword1", "keyword2", ...],
  "summary": "brief summary",
  "topics": ["topic1", "topic2", ...]
}`, contentType, body)

	meta, err := e.extract(ctx, prompt)
	if err != nil {
		slog.Warn("metadata extraction failed, using keyword fallback", "content_type", contentType, "error", err)
		return fallbackMetadata(text)
	}
	return meta
}

func (e *Extractor) extract(ctx context.Context, prompt string) (models.Metadata, error) {
	content, err := e.client.CompleteJSON(ctx, extractionSystemPrompt, prompt)
	if err != nil {
		return models.Metadata{}, err
	}
	return decodeMetadata(content)
}

// knownMetadataFields are lifted into typed fields; everything else the
// model returns lands in Extra.
var knownMetadataFields = map[string]struct{}{
	"keywords": {}, "summary": {}, "topics": {}, "speakers": {},
	"language": {}, "actionItems": {}, "decisions": {},
	"meetingTitle": {}, "participants": {},
}

func decodeMetadata(content string) (models.Metadata, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return models.Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}

	meta := models.Metadata{
		Keywords:     stringSlice(raw["keywords"]),
		Summary:      stringField(raw["summary"]),
		Topics:       stringSlice(raw["topics"]),
		Speakers:     stringSlice(raw["speakers"]),
		Language:     stringField(raw["language"]),
		ActionItems:  stringSlice(raw["actionItems"]),
		Decisions:    stringSlice(raw["decisions"]),
		MeetingTitle: stringField(raw["meetingTitle"]),
		Participants: stringSlice(raw["participants"]),
	}

	for k, v := range raw {
		if _, known := knownMetadataFields[k]; known || v == nil {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = map[string]any{}
		}
		meta.Extra[k] = v
	}

	return meta, nil
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// fallbackMetadata extracts the most frequent words longer than four
// characters when the extraction call is unavailable.
func fallbackMetadata(text string) models.Metadata {
	freq := map[string]int{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 4 {
			freq[w]++
		}
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > 10 {
		words = words[:10]
	}

	summary := text
	if len(summary) > 200 {
		summary = summary[:200] + "..."
	}

	return models.Metadata{Keywords: words, Summary: summary}
}
