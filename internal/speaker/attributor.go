// Package speaker infers speaker identities for transcript segments. The
// transcription service performs no diarization, so identity is inferred
// from content via batched LLM calls.
package speaker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldnotes-ai/recall/internal/llm"
	"github.com/fieldnotes-ai/recall/internal/models"
)

const (
	// batchSize bounds the segments sent per labeling call.
	batchSize = 20
	// contextSize is how many trailing segments of the previous batch are
	// included, unlabeled, for continuity.
	contextSize = 5
	// genericLabelPrefix marks placeholder labels like "Speaker 1" that
	// must not be registered as real names.
	genericLabelPrefix = "speaker "
)

const systemPrompt = "You are a speaker diarization assistant. Analyze transcriptions and identify which speaker said each segment. Always use actual names when identifiable, never generic labels unless absolutely necessary. Always respond with valid JSON only."

// Attributor assigns speaker names to transcript segments.
type Attributor struct {
	client       llm.Completer
	batchTimeout time.Duration
}

// NewAttributor creates an attributor backed by a completion client. Each
// labeling call is bounded by batchTimeout; zero leaves calls unbounded.
func NewAttributor(client llm.Completer, batchTimeout time.Duration) *Attributor {
	return &Attributor{client: client, batchTimeout: batchTimeout}
}

// Attribute labels each segment's Speaker field in place and returns the
// same slice. knownSpeakers seeds the name normalization map so detected
// labels collapse onto names already extracted from metadata. A failed or
// malformed batch call leaves that batch unlabeled and processing
// continues with the next batch.
func (a *Attributor) Attribute(ctx context.Context, segments []models.TranscriptSegment, knownSpeakers []string) []models.TranscriptSegment {
	if len(segments) == 0 {
		return segments
	}

	slog.Debug("attributing speakers", "segments", len(segments), "known_speakers", len(knownSpeakers))

	// Lower-cased detected label to canonical display name. Mutated
	// sequentially; later batches reuse names learned from earlier ones.
	canonical := map[string]string{}
	for _, name := range knownSpeakers {
		canonical[strings.ToLower(name)] = name
	}

	batchCount := 0
	labeled := 0
	for start := 0; start < len(segments); start += batchSize {
		batchCount++
		end := min(start+batchSize, len(segments))
		batch := segments[start:end]

		var contextSegs []models.TranscriptSegment
		if start > 0 {
			ctxStart := max(start-contextSize, 0)
			contextSegs = segments[ctxStart:start]
		}

		// A hung completion must not stall the whole transcript; the
		// deadline fails the batch and the loop moves on.
		bctx, cancel := a.withTimeout(ctx)
		labels, err := a.labelBatch(bctx, contextSegs, batch, knownSpeakers)
		cancel()
		if err != nil {
			slog.Warn("speaker labeling batch failed, leaving batch unlabeled",
				"batch", batchCount, "error", err)
			continue
		}

		for i := range batch {
			// Segments are numbered across context plus batch; accept the
			// batch-local numbering too in case the model ignored context.
			label := labels[fmt.Sprintf("Segment %d", len(contextSegs)+i+1)]
			if label == "" {
				label = labels[fmt.Sprintf("Segment %d", i+1)]
			}
			if label == "" {
				continue
			}
			batch[i].Speaker = resolveLabel(label, knownSpeakers, canonical)
			labeled++
		}
	}

	slog.Debug("speaker attribution complete", "labeled", labeled, "segments", len(segments))
	return segments
}

func (a *Attributor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.batchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.batchTimeout)
}

func (a *Attributor) labelBatch(ctx context.Context, contextSegs, batch []models.TranscriptSegment, knownSpeakers []string) (map[string]string, error) {
	var sb strings.Builder
	for i, seg := range append(append([]models.TranscriptSegment{}, contextSegs...), batch...) {
		fmt.Fprintf(&sb, "[Segment %d] %s\n", i+1, seg.Text)
	}

	var guidance string
	if len(knownSpeakers) > 0 {
		guidance = fmt.Sprintf(`IMPORTANT: The following people are known to be in this conversation: %s.
When identifying speakers, use their ACTUAL NAMES from this list whenever possible.
Only use generic labels like "Speaker 1" if you cannot identify the actual person.
Look for direct mentions of names, self-references, and context clues that identify the speaker.`, strings.Join(knownSpeakers, ", "))
	} else {
		guidance = `Identify different speakers based on speaking style, content, and context.
Try to extract actual names from the conversation (e.g., "Hi, I'm John" or "Sarah mentioned").
Only use generic labels like "Speaker 1" if actual names cannot be determined.`
	}

	prompt := fmt.Sprintf(`Analyze this audio transcription and identify which speaker said each segment.

Transcription segments:
%s
%s

For each segment, determine which speaker said it. Prioritize actual names over generic labels.

Respond in JSON format:
{
  "speakers": {
    "Segment 1": "<name or Speaker 1>",
    "Segment 2": "<name or Speaker 2>"
  }
}

Only include segments from the current batch (not context segments).`, sb.String(), guidance)

	content, err := a.client.CompleteJSON(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Speakers map[string]string `json:"speakers"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("decode speaker labels: %w", err)
	}
	return parsed.Speakers, nil
}

// resolveLabel collapses a detected label onto a canonical speaker name.
// Known-speaker matching is fuzzy: exact, substring or prefix in either
// direction, case-insensitive. Labels that match nothing and are not
// generic placeholders become new canonical names, title-cased.
func resolveLabel(label string, knownSpeakers []string, canonical map[string]string) string {
	key := strings.ToLower(strings.TrimSpace(label))

	if name, ok := canonical[key]; ok {
		return name
	}

	for _, known := range knownSpeakers {
		knownLower := strings.ToLower(known)
		if key == knownLower || strings.Contains(key, knownLower) || strings.Contains(knownLower, key) {
			canonical[key] = known
			return known
		}
	}

	if strings.HasPrefix(key, genericLabelPrefix) {
		canonical[key] = label
		return label
	}

	name := titleCase(label)
	canonical[key] = name
	return name
}

func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
