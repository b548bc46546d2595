// Package transcribe converts audio into timestamped transcript segments
// via the OpenAI audio transcription API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/fieldnotes-ai/recall/internal/models"
)

const defaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// Client calls the transcription endpoint with multipart audio uploads.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

// NewClient creates a transcription client.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 5 * time.Minute},
	}
}

// verbose_json response shape.
type transcriptionResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe uploads audio and returns the transcript with per-segment
// timestamps. Segments carry no speaker labels; attribution happens
// downstream.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (*models.Transcription, error) {
	slog.Debug("transcribing audio", "file", filename, "bytes", len(audio), "model", c.model)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType(filename))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := w.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("transcription request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode transcription: %w", err)
	}

	result := &models.Transcription{
		Text:     parsed.Text,
		Duration: parsed.Duration,
	}
	for _, seg := range parsed.Segments {
		result.Segments = append(result.Segments, models.TranscriptSegment{
			Text:  seg.Text,
			Start: seg.Start,
			End:   seg.End,
		})
	}

	slog.Debug("transcription complete",
		"chars", len(result.Text), "segments", len(result.Segments), "duration_s", result.Duration)
	return result, nil
}

// mimeType maps common audio extensions; unknown extensions default to
// audio/mpeg.
func mimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	default:
		return "audio/mpeg"
	}
}
